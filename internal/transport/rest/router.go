package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/interview"
)

// Interviewer is the interview API served over HTTP.
type Interviewer interface {
	Companies() []string
	InterviewTypes(company string) ([]string, error)
	Start(ctx context.Context, company, interviewType string, voiceMode bool) (*interview.StartResult, error)
	SubmitAnswer(ctx context.Context, id, answer string) (*interview.AnswerResult, error)
	End(ctx context.Context, id string) (*interview.EndResult, error)
}

// CORS lists the values sent in the Access-Control-Allow-* headers.
type CORS struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// DefaultCORS allows any origin.
func DefaultCORS() CORS {
	return CORS{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
}

// NewRouter creates the API router with all endpoints.
func NewRouter(svc Interviewer, cors CORS, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &handler{svc: svc, logger: logger}
	r := mux.NewRouter()

	r.Use(corsMiddleware(cors))
	r.Use(loggingMiddleware(logger))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/companies", h.companies).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/companies/{company}/types", h.interviewTypes).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/start", h.start).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/answer", h.answer).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/end", h.end).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/voice/convert", h.convertVoice).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

func corsMiddleware(cors CORS) mux.MiddlewareFunc {
	origins := joinOr(cors.AllowedOrigins, "*")
	methods := joinOr(cors.AllowedMethods, "GET, POST, OPTIONS")
	headers := joinOr(cors.AllowedHeaders, "Content-Type, Authorization")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origins)
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func joinOr(values []string, fallback string) string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return strings.Join(out, ", ")
}
