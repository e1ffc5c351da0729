package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/evaluation"
	"github.com/spigell/mock-interviewer/internal/interviewtype"
	"github.com/spigell/mock-interviewer/internal/logger"
	"github.com/spigell/mock-interviewer/internal/questionbank"
	"github.com/spigell/mock-interviewer/internal/session"
)

// ClosingPrompt is returned instead of a question once every question is answered.
const ClosingPrompt = "That concludes our interview questions. Would you like to end the interview and receive your final feedback?"

const summaryBase = "Assess the interview as a whole using the following company guidelines."

// QuestionSource provides the static question bank.
type QuestionSource interface {
	Companies() []string
	Types(company string) ([]interviewtype.Type, error)
	Lookup(company, interviewType string) ([]questionbank.Entry, error)
	CanonicalName(company string) (string, bool)
}

// ConfigResolver provides evaluation configs per company and interview type.
type ConfigResolver interface {
	Resolve(company, interviewType string) evaluation.Config
}

type StartResult struct {
	SessionID      string
	Question       string
	Company        string
	InterviewType  string
	TotalQuestions int
	VoiceMode      bool
}

type AnswerResult struct {
	Evaluation        string
	FollowUpQuestions []string
	// Question is the next question, or ClosingPrompt after the last answer.
	Question       string
	QuestionNumber int
	TotalQuestions int
	IsLast         bool
	VoiceMode      bool
}

type EndResult struct {
	Feedback      string
	Strengths     []string
	Improvements  []string
	OverallRating string
	Company       string
	VoiceMode     bool
}

// Service runs interview sessions. It is safe for concurrent use.
type Service struct {
	questions QuestionSource
	configs   ConfigResolver
	store     session.Store
	evaluator ai.Evaluator
	log       *zap.Logger
}

func NewService(questions QuestionSource, configs ConfigResolver, store session.Store, evaluator ai.Evaluator, log *zap.Logger) *Service {
	return &Service{
		questions: questions,
		configs:   configs,
		store:     store,
		evaluator: evaluator,
		log:       logger.WithFields(log),
	}
}

// Companies lists the companies in bank order.
func (s *Service) Companies() []string {
	return s.questions.Companies()
}

// InterviewTypes lists the interview types offered by a company.
func (s *Service) InterviewTypes(company string) ([]string, error) {
	if strings.TrimSpace(company) == "" {
		return nil, fmt.Errorf("%w: company is required", ErrBadRequest)
	}

	types, err := s.questions.Types(company)
	if err != nil {
		return nil, translateBankError(err)
	}

	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.String())
	}
	return out, nil
}

// Start creates a session and asks its first question. An empty interview
// type selects the general interview.
func (s *Service) Start(_ context.Context, company, interviewType string, voiceMode bool) (*StartResult, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, fmt.Errorf("%w: company is required", ErrBadRequest)
	}

	questions, err := s.questions.Lookup(company, interviewType)
	if err != nil {
		return nil, translateBankError(err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s has no questions", ErrUnknownInterviewType, company)
	}

	if canonical, ok := s.questions.CanonicalName(company); ok {
		company = canonical
	}
	normalized := interviewtype.Normalize(interviewType).String()

	sess := &session.Session{
		Company:       company,
		InterviewType: normalized,
		VoiceMode:     voiceMode,
		Questions:     questions,
		State:         session.AwaitingAnswer,
	}
	sess.Append(session.Interviewer, questions[0].Question)

	id, err := s.store.Create(sess)
	if err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	s.log.Info("interview started",
		append(logger.SessionFields(id, company, normalized), zap.Int("total_questions", len(questions)))...,
	)

	return &StartResult{
		SessionID:      id,
		Question:       questions[0].Question,
		Company:        company,
		InterviewType:  normalized,
		TotalQuestions: len(questions),
		VoiceMode:      voiceMode,
	}, nil
}

// SubmitAnswer records the candidate's answer to the current question, has it
// evaluated and moves on to the next question. When the evaluator fails the
// session keeps the candidate turn but does not advance, so the answer can be
// resubmitted.
func (s *Service) SubmitAnswer(ctx context.Context, id, answer string) (*AnswerResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrBadRequest)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: answer is required", ErrBadRequest)
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		snapshot session.Session
		current  questionbank.Entry
	)
	err = s.store.Mutate(id, func(sess *session.Session) error {
		q, ok := sess.Current()
		if !ok || sess.State == session.Completed {
			return ErrInterviewFinished
		}
		sess.Append(session.Candidate, answer)
		sess.State = session.Evaluating
		current = q
		snapshot = sess.Clone()
		return nil
	})
	if err != nil {
		return nil, s.translateStoreError(id, err)
	}

	log := logger.WithFields(s.log, logger.SessionFields(id, snapshot.Company, snapshot.InterviewType)...)

	cfg := s.configs.Resolve(snapshot.Company, snapshot.InterviewType)
	result, err := s.evaluator.EvaluateAnswer(ctx, ai.AnswerRequest{
		Company:       snapshot.Company,
		InterviewType: snapshot.InterviewType,
		Question:      current.Question,
		Answer:        answer,
		Rubric:        evaluation.RenderPrompt(current.EvaluationPrompt, cfg),
		History:       toAITurns(snapshot.History),
	})
	if err != nil {
		log.Warn("answer evaluation failed", zap.Int("question_number", snapshot.CurrentIndex+1), zap.Error(err))
		if resetErr := s.store.Mutate(id, func(sess *session.Session) error {
			sess.State = session.AwaitingAnswer
			return nil
		}); resetErr != nil {
			log.Error("failed to reset session state", zap.Error(resetErr))
		}
		return nil, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}

	out := &AnswerResult{
		Evaluation:        result.Evaluation,
		FollowUpQuestions: append([]string{}, result.FollowUpQuestions...),
		TotalQuestions:    snapshot.Total(),
		VoiceMode:         snapshot.VoiceMode,
	}

	err = s.store.Mutate(id, func(sess *session.Session) error {
		sess.Append(session.Interviewer, result.Evaluation)
		sess.CurrentIndex++

		if next, ok := sess.Current(); ok {
			sess.Append(session.Interviewer, next.Question)
			sess.State = session.AwaitingAnswer
			out.Question = next.Question
			out.QuestionNumber = sess.CurrentIndex + 1
			out.IsLast = sess.CurrentIndex == sess.Total()-1
			return nil
		}

		sess.State = session.AllQuestionsAnswered
		out.Question = ClosingPrompt
		out.QuestionNumber = sess.CurrentIndex
		out.IsLast = true
		return nil
	})
	if err != nil {
		return nil, s.translateStoreError(id, err)
	}

	log.Info("answer accepted",
		zap.Int("question_number", out.QuestionNumber),
		zap.Int("total_questions", out.TotalQuestions),
		zap.Bool("is_last", out.IsLast),
	)

	return out, nil
}

// End produces the final feedback. The first successful call stores the
// summary and completes the session; later calls return the stored summary.
func (s *Service) End(ctx context.Context, id string) (*EndResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrBadRequest)
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	snapshot, err := s.store.Get(id)
	if err != nil {
		return nil, s.translateStoreError(id, err)
	}

	if snapshot.State == session.Completed && snapshot.Summary != nil {
		return endResult(&snapshot, snapshot.Summary), nil
	}

	log := logger.WithFields(s.log, logger.SessionFields(id, snapshot.Company, snapshot.InterviewType)...)

	cfg := s.configs.Resolve(snapshot.Company, snapshot.InterviewType)
	result, err := s.evaluator.Summarize(ctx, ai.SummaryRequest{
		Company:       snapshot.Company,
		InterviewType: snapshot.InterviewType,
		Guidelines:    evaluation.RenderPrompt(summaryBase, cfg),
		IncludeScore:  cfg.Structure.IncludeScore,
		History:       toAITurns(snapshot.History),
	})
	if err != nil {
		log.Warn("interview summary failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}

	summary := &session.Summary{
		Feedback:      result.Feedback,
		Strengths:     append([]string{}, result.Strengths...),
		Improvements:  append([]string{}, result.Improvements...),
		OverallRating: result.OverallRating,
	}

	err = s.store.Mutate(id, func(sess *session.Session) error {
		sess.Append(session.Interviewer, summary.Feedback)
		sess.State = session.Completed
		sess.Summary = summary
		return nil
	})
	if err != nil {
		return nil, s.translateStoreError(id, err)
	}

	log.Info("interview completed",
		zap.Int("answered", snapshot.CurrentIndex),
		zap.Int("total_questions", snapshot.Total()),
	)

	return endResult(&snapshot, summary), nil
}

// Session returns a snapshot of the session.
func (s *Service) Session(id string) (session.Session, error) {
	sess, err := s.store.Get(strings.TrimSpace(id))
	if err != nil {
		return session.Session{}, s.translateStoreError(id, err)
	}
	return sess, nil
}

func (s *Service) acquire(ctx context.Context, id string) (func(), error) {
	release, err := s.store.Acquire(ctx, id)
	if err != nil {
		return nil, s.translateStoreError(id, err)
	}
	return release, nil
}

func (s *Service) translateStoreError(id string, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	case errors.Is(err, ErrInterviewFinished):
		return fmt.Errorf("%w: %s", ErrInterviewFinished, id)
	default:
		return fmt.Errorf("session %s: %w", id, err)
	}
}

func translateBankError(err error) error {
	switch {
	case errors.Is(err, questionbank.ErrUnknownCompany):
		return fmt.Errorf("%w: %w", ErrUnknownCompany, err)
	case errors.Is(err, questionbank.ErrUnknownInterviewType):
		return fmt.Errorf("%w: %w", ErrUnknownInterviewType, err)
	default:
		return err
	}
}

func endResult(sess *session.Session, summary *session.Summary) *EndResult {
	return &EndResult{
		Feedback:      summary.Feedback,
		Strengths:     append([]string{}, summary.Strengths...),
		Improvements:  append([]string{}, summary.Improvements...),
		OverallRating: summary.OverallRating,
		Company:       sess.Company,
		VoiceMode:     sess.VoiceMode,
	}
}

func toAITurns(history []session.Turn) []ai.Turn {
	out := make([]ai.Turn, 0, len(history))
	for _, turn := range history {
		role := ai.RoleCandidate
		if turn.Speaker == session.Interviewer {
			role = ai.RoleInterviewer
		}
		out = append(out, ai.Turn{Role: role, Text: turn.Text})
	}
	return out
}
