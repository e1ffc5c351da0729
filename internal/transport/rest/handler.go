package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/interview"
)

const maxBodyBytes = 1 << 20

type handler struct {
	svc    Interviewer
	logger *zap.Logger
}

type startRequest struct {
	Company       string `json:"company"`
	InterviewType string `json:"interview_type"`
	VoiceMode     bool   `json:"is_voice_mode"`
}

type startResponse struct {
	SessionID      string `json:"session_id"`
	Question       string `json:"question"`
	Company        string `json:"company"`
	TotalQuestions int    `json:"total_questions"`
	VoiceMode      bool   `json:"is_voice_mode"`
}

type answerRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

type answerResponse struct {
	Evaluation        string   `json:"evaluation"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Question          string   `json:"question"`
	QuestionNumber    int      `json:"question_number"`
	TotalQuestions    int      `json:"total_questions"`
	IsLast            bool     `json:"is_last"`
	VoiceMode         bool     `json:"is_voice_mode"`
}

type endRequest struct {
	SessionID string `json:"session_id"`
}

type endResponse struct {
	Feedback      string   `json:"feedback"`
	Strengths     []string `json:"strengths"`
	Improvements  []string `json:"areas_for_improvement"`
	OverallRating string   `json:"overall_rating"`
	Company       string   `json:"company"`
	VoiceMode     bool     `json:"is_voice_mode"`
}

type voiceRequest struct {
	Text string `json:"text"`
}

// companies handles GET /api/companies
func (h *handler) companies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Companies())
}

// interviewTypes handles GET /api/companies/{company}/types
func (h *handler) interviewTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.svc.InterviewTypes(mux.Vars(r)["company"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// start handles POST /api/start
func (h *handler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Start(r.Context(), req.Company, req.InterviewType, req.VoiceMode)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		SessionID:      res.SessionID,
		Question:       res.Question,
		Company:        res.Company,
		TotalQuestions: res.TotalQuestions,
		VoiceMode:      res.VoiceMode,
	})
}

// answer handles POST /api/answer
func (h *handler) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.SubmitAnswer(r.Context(), req.SessionID, req.Answer)
	if err != nil {
		h.fail(w, err)
		return
	}

	followUps := res.FollowUpQuestions
	if followUps == nil {
		followUps = []string{}
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Evaluation:        res.Evaluation,
		FollowUpQuestions: followUps,
		Question:          res.Question,
		QuestionNumber:    res.QuestionNumber,
		TotalQuestions:    res.TotalQuestions,
		IsLast:            res.IsLast,
		VoiceMode:         res.VoiceMode,
	})
}

// end handles POST /api/end
func (h *handler) end(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.End(r.Context(), req.SessionID)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, endResponse{
		Feedback:      res.Feedback,
		Strengths:     nonNil(res.Strengths),
		Improvements:  nonNil(res.Improvements),
		OverallRating: res.OverallRating,
		Company:       res.Company,
		VoiceMode:     res.VoiceMode,
	})
}

// convertVoice handles POST /api/voice/convert. Speech conversion happens in
// the browser, so the text is echoed back unchanged.
func (h *handler) convertVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, voiceRequest{Text: req.Text})
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrBadRequest),
		errors.Is(err, interview.ErrUnknownCompany),
		errors.Is(err, interview.ErrUnknownInterviewType):
		return http.StatusBadRequest
	case errors.Is(err, interview.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, interview.ErrInterviewFinished):
		return http.StatusConflict
	case errors.Is(err, interview.ErrEvaluationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
