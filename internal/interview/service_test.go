package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/evaluation"
	"github.com/spigell/mock-interviewer/internal/questionbank"
	"github.com/spigell/mock-interviewer/internal/session"
)

const acmeBank = `
companies:
  - name: Acme
    types:
      general:
        - question: Q1
          rubric: R1
        - question: Q2
          rubric: R2
  - name: Globex
    types:
      technical:
        - question: T1
          rubric: TR1
        - question: T2
          rubric: TR2
        - question: T3
          rubric: TR3
`

type stubEvaluator struct {
	mu          sync.Mutex
	evaluateErr error
	summaryErr  error
	answers     []ai.AnswerRequest
	summaries   []ai.SummaryRequest

	// gate, when set, blocks EvaluateAnswer until it is closed.
	gate chan struct{}
}

func (s *stubEvaluator) EvaluateAnswer(_ context.Context, req ai.AnswerRequest) (*ai.AnswerEvaluation, error) {
	if s.gate != nil {
		<-s.gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, req)
	if s.evaluateErr != nil {
		return nil, s.evaluateErr
	}
	return &ai.AnswerEvaluation{Evaluation: "E" + strings.TrimPrefix(req.Answer, "A"), FollowUpQuestions: []string{"why?"}}, nil
}

func (s *stubEvaluator) Summarize(_ context.Context, req ai.SummaryRequest) (*ai.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, req)
	if s.summaryErr != nil {
		return nil, s.summaryErr
	}
	return &ai.Summary{Feedback: "F", Strengths: []string{"s1"}, Improvements: []string{"i1"}, OverallRating: "4"}, nil
}

func (s *stubEvaluator) answerCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func newTestService(t *testing.T, evaluator ai.Evaluator, log *zap.Logger) (*Service, *session.MemoryStore) {
	t.Helper()

	bank, err := questionbank.Parse([]byte(acmeBank))
	if err != nil {
		t.Fatalf("parse bank: %v", err)
	}
	resolver, err := evaluation.NewDefaultResolver()
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	store := session.NewMemoryStore()
	return NewService(bank, resolver, store, evaluator, log), store
}

func TestInterviewScenario(t *testing.T) {
	evaluator := &stubEvaluator{}
	svc, store := newTestService(t, evaluator, zap.NewNop())
	ctx := context.Background()

	start, err := svc.Start(ctx, "Acme", "general", true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.Question != "Q1" || start.TotalQuestions != 2 || start.Company != "Acme" || !start.VoiceMode {
		t.Fatalf("unexpected start result: %+v", start)
	}

	sess, _ := store.Get(start.SessionID)
	if sess.CurrentIndex != 0 || len(sess.History) != 1 || sess.History[0].Text != "Q1" {
		t.Fatalf("unexpected session after start: %+v", sess)
	}

	first, err := svc.SubmitAnswer(ctx, start.SessionID, "A1")
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if first.Evaluation != "E1" || first.Question != "Q2" || first.QuestionNumber != 2 || !first.IsLast || first.TotalQuestions != 2 {
		t.Fatalf("unexpected first answer result: %+v", first)
	}
	if len(first.FollowUpQuestions) != 1 || !first.VoiceMode {
		t.Fatalf("expected follow-ups and voice mode: %+v", first)
	}

	req := evaluator.answers[0]
	if req.Company != "Acme" || req.InterviewType != "general" || req.Answer != "A1" || req.Question != "Q1" {
		t.Fatalf("unexpected evaluation request: %+v", req)
	}
	if !strings.HasPrefix(req.Rubric, "R1\n\nEvaluation Criteria:") {
		t.Fatalf("expected rendered rubric, got %q", req.Rubric)
	}
	if len(req.History) != 2 || req.History[1].Role != ai.RoleCandidate || req.History[1].Text != "A1" {
		t.Fatalf("expected history with candidate answer, got %+v", req.History)
	}

	second, err := svc.SubmitAnswer(ctx, start.SessionID, "A2")
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if second.Question != ClosingPrompt || !second.IsLast || second.QuestionNumber != 2 || second.Evaluation != "E2" {
		t.Fatalf("unexpected second answer result: %+v", second)
	}

	sess, _ = store.Get(start.SessionID)
	expected := []string{"Q1", "A1", "E1", "Q2", "A2", "E2"}
	if len(sess.History) != len(expected) {
		t.Fatalf("unexpected history length %d: %+v", len(sess.History), sess.History)
	}
	for i, text := range expected {
		if sess.History[i].Text != text {
			t.Fatalf("history[%d] = %q, want %q", i, sess.History[i].Text, text)
		}
	}
	if sess.State != session.AllQuestionsAnswered || sess.CurrentIndex != 2 {
		t.Fatalf("unexpected state: %s index %d", sess.State, sess.CurrentIndex)
	}

	if _, err := svc.SubmitAnswer(ctx, start.SessionID, "A3"); !errors.Is(err, ErrInterviewFinished) {
		t.Fatalf("expected ErrInterviewFinished, got %v", err)
	}

	end, err := svc.End(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if end.Feedback != "F" || end.Company != "Acme" || !end.VoiceMode || end.OverallRating != "4" {
		t.Fatalf("unexpected end result: %+v", end)
	}
	if len(evaluator.summaries) != 1 || len(evaluator.summaries[0].History) != 6 {
		t.Fatalf("expected summary over the full history: %+v", evaluator.summaries)
	}
	if !strings.Contains(evaluator.summaries[0].Guidelines, "Evaluation Criteria:") {
		t.Fatalf("expected guidelines in summary request")
	}

	sess, _ = store.Get(start.SessionID)
	if sess.State != session.Completed || sess.History[len(sess.History)-1].Text != "F" {
		t.Fatalf("expected completed session with feedback turn: %+v", sess)
	}
}

func TestQuestionNumbering(t *testing.T) {
	svc, _ := newTestService(t, &stubEvaluator{}, zap.NewNop())
	ctx := context.Background()

	start, err := svc.Start(ctx, "globex", "coding", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.Company != "Globex" || start.InterviewType != "technical" || start.TotalQuestions != 3 {
		t.Fatalf("unexpected start: %+v", start)
	}

	expected := []struct {
		question string
		number   int
		isLast   bool
	}{
		{question: "T2", number: 2, isLast: false},
		{question: "T3", number: 3, isLast: true},
		{question: ClosingPrompt, number: 3, isLast: true},
	}

	for i, exp := range expected {
		res, err := svc.SubmitAnswer(ctx, start.SessionID, "A")
		if err != nil {
			t.Fatalf("answer %d: %v", i+1, err)
		}
		if res.Question != exp.question || res.QuestionNumber != exp.number || res.IsLast != exp.isLast {
			t.Fatalf("answer %d: unexpected result %+v", i+1, res)
		}
	}
}

func TestStartErrors(t *testing.T) {
	svc, store := newTestService(t, &stubEvaluator{}, zap.NewNop())

	tests := []struct {
		name          string
		company       string
		interviewType string
		expect        error
	}{
		{name: "empty company", company: "  ", interviewType: "general", expect: ErrBadRequest},
		{name: "unknown company", company: "Initech", interviewType: "general", expect: ErrUnknownCompany},
		{name: "unknown type", company: "Acme", interviewType: "technical", expect: ErrUnknownInterviewType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Start(context.Background(), tt.company, tt.interviewType, false); !errors.Is(err, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, err)
			}
		})
	}

	if store.Len() != 0 {
		t.Fatalf("failed starts must not create sessions")
	}
}

func TestUnknownSession(t *testing.T) {
	svc, store := newTestService(t, &stubEvaluator{}, zap.NewNop())
	ctx := context.Background()

	if _, err := svc.SubmitAnswer(ctx, "nope", "A1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.End(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Session("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("lookups must not create sessions")
	}
}

func TestBadRequests(t *testing.T) {
	svc, _ := newTestService(t, &stubEvaluator{}, zap.NewNop())
	ctx := context.Background()

	start, _ := svc.Start(ctx, "Acme", "", false)

	if _, err := svc.SubmitAnswer(ctx, "", "A1"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if _, err := svc.SubmitAnswer(ctx, start.SessionID, "   "); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if _, err := svc.End(ctx, " "); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
	if _, err := svc.InterviewTypes(""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}

	sess, _ := svc.Session(start.SessionID)
	if len(sess.History) != 1 {
		t.Fatalf("bad requests must not touch state: %+v", sess.History)
	}
}

func TestEvaluationFailureKeepsSessionReanswerable(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	evaluator := &stubEvaluator{evaluateErr: errors.New("model unavailable")}
	svc, store := newTestService(t, evaluator, zap.New(core))
	ctx := context.Background()

	start, _ := svc.Start(ctx, "Acme", "general", false)

	_, err := svc.SubmitAnswer(ctx, start.SessionID, "A1")
	if !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}

	sess, _ := store.Get(start.SessionID)
	if sess.CurrentIndex != 0 || len(sess.History) != 2 || sess.History[1].Text != "A1" {
		t.Fatalf("expected only the candidate turn to be added: %+v", sess)
	}
	if sess.State != session.AwaitingAnswer {
		t.Fatalf("expected state reset to awaiting answer, got %s", sess.State)
	}

	entries := observed.FilterMessage("answer evaluation failed").All()
	if len(entries) != 1 || entries[0].ContextMap()["session_id"] != start.SessionID {
		t.Fatalf("expected failure to be logged with session id, got %v", entries)
	}

	evaluator.mu.Lock()
	evaluator.evaluateErr = nil
	evaluator.mu.Unlock()

	res, err := svc.SubmitAnswer(ctx, start.SessionID, "A1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Question != "Q2" || res.QuestionNumber != 2 {
		t.Fatalf("unexpected retry result: %+v", res)
	}
}

func TestEndFailureAndIdempotence(t *testing.T) {
	evaluator := &stubEvaluator{summaryErr: errors.New("timeout")}
	svc, store := newTestService(t, evaluator, zap.NewNop())
	ctx := context.Background()

	start, _ := svc.Start(ctx, "Acme", "general", false)

	if _, err := svc.End(ctx, start.SessionID); !errors.Is(err, ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationFailed, got %v", err)
	}
	sess, _ := store.Get(start.SessionID)
	if len(sess.History) != 1 || sess.State != session.AwaitingAnswer {
		t.Fatalf("failed end must not change the session: %+v", sess)
	}

	evaluator.summaryErr = nil

	first, err := svc.End(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	second, err := svc.End(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("second end: %v", err)
	}

	if first.Feedback != second.Feedback || len(evaluator.summaries) != 2 {
		t.Fatalf("expected cached summary on repeated end, got %d summarize calls", len(evaluator.summaries))
	}

	sess, _ = store.Get(start.SessionID)
	if len(sess.History) != 2 {
		t.Fatalf("feedback must be appended once: %+v", sess.History)
	}

	if _, err := svc.SubmitAnswer(ctx, start.SessionID, "late"); !errors.Is(err, ErrInterviewFinished) {
		t.Fatalf("expected ErrInterviewFinished after end, got %v", err)
	}
}

func TestConcurrentSubmitsAdvanceOncePerAnswer(t *testing.T) {
	evaluator := &stubEvaluator{gate: make(chan struct{})}
	svc, store := newTestService(t, evaluator, zap.NewNop())
	ctx := context.Background()

	start, _ := svc.Start(ctx, "Globex", "technical", false)

	const submits = 5
	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		finished atomic.Int32
	)
	wg.Add(submits)
	for i := 0; i < submits; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.SubmitAnswer(ctx, start.SessionID, "A")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInterviewFinished):
				finished.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	// Other sessions are not blocked while the first one waits on its evaluator.
	other, err := svc.Start(ctx, "Acme", "general", false)
	if err != nil {
		t.Fatalf("start other: %v", err)
	}
	if _, err := svc.Session(other.SessionID); err != nil {
		t.Fatalf("read other: %v", err)
	}

	close(evaluator.gate)
	wg.Wait()

	if ok.Load() != 3 || finished.Load() != 2 {
		t.Fatalf("expected 3 accepted and 2 rejected submits, got %d and %d", ok.Load(), finished.Load())
	}
	if evaluator.answerCalls() != 3 {
		t.Fatalf("expected 3 evaluator calls, got %d", evaluator.answerCalls())
	}

	sess, _ := store.Get(start.SessionID)
	if sess.CurrentIndex != 3 || len(sess.History) != 1+3*3-1 {
		t.Fatalf("unexpected session after concurrent submits: index %d history %d", sess.CurrentIndex, len(sess.History))
	}
}

func TestCompaniesAndTypes(t *testing.T) {
	svc, _ := newTestService(t, &stubEvaluator{}, zap.NewNop())

	if got := strings.Join(svc.Companies(), ","); got != "Acme,Globex" {
		t.Fatalf("unexpected companies: %s", got)
	}

	types, err := svc.InterviewTypes("acme")
	if err != nil || len(types) != 1 || types[0] != "general" {
		t.Fatalf("unexpected types %v, err %v", types, err)
	}

	if _, err := svc.InterviewTypes("Initech"); !errors.Is(err, ErrUnknownCompany) {
		t.Fatalf("expected ErrUnknownCompany, got %v", err)
	}
}
