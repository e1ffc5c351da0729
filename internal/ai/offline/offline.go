// Package offline provides a deterministic evaluator that needs no model
// access. Feedback is derived from answer length and the rubric text.
package offline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/logger"
)

// ProviderName is the value logged in the ai_provider field.
const ProviderName = "offline"

const (
	briefWords    = 15
	detailedWords = 60
)

type Evaluator struct {
	logger *zap.Logger
}

var _ ai.Evaluator = (*Evaluator)(nil)

func NewEvaluator(log *zap.Logger) *Evaluator {
	return &Evaluator{logger: logger.WithCommonFields(log, ProviderName, "")}
}

func (e *Evaluator) EvaluateAnswer(ctx context.Context, req ai.AnswerRequest) (*ai.AnswerEvaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrDispatch, err)
	}

	words := len(strings.Fields(req.Answer))
	focus := rubricFocus(req.Rubric)

	var b strings.Builder
	fmt.Fprintf(&b, "Your answer has %d words. ", words)

	out := &ai.AnswerEvaluation{}
	switch {
	case words < briefWords:
		b.WriteString("It is quite brief, so most of the expected points are probably missing. ")
		out.FollowUpQuestions = []string{
			"Can you walk me through a concrete example?",
			"What trade-offs did you consider?",
		}
	case words < detailedWords:
		b.WriteString("It covers the basics but would benefit from more specific detail. ")
		out.FollowUpQuestions = []string{"What was the measurable outcome?"}
	default:
		b.WriteString("It is detailed; make sure the structure stays easy to follow. ")
	}

	if focus != "" {
		fmt.Fprintf(&b, "Check it against the expectation: %s", focus)
	}

	out.Evaluation = strings.TrimSpace(b.String())

	e.logger.Debug("offline answer evaluated", zap.Int("words", words))

	return out, nil
}

func (e *Evaluator) Summarize(ctx context.Context, req ai.SummaryRequest) (*ai.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrDispatch, err)
	}

	var answers, words int
	for _, turn := range req.History {
		if turn.Role != ai.RoleCandidate {
			continue
		}
		answers++
		words += len(strings.Fields(turn.Text))
	}

	avg := 0
	if answers > 0 {
		avg = words / answers
	}

	summary := &ai.Summary{
		Feedback: fmt.Sprintf("You answered %d question(s) in your %s %s interview with an average of %d words per answer.",
			answers, req.Company, req.InterviewType, avg),
		Strengths: []string{
			"Completed the interview",
			"Engaged with every question asked",
			"Kept a consistent pace",
		},
		Improvements: []string{
			"Support claims with concrete examples",
			"Quantify the impact of your work",
			"Close each answer with a short summary",
		},
	}

	if avg >= detailedWords {
		summary.Strengths[2] = "Gave detailed answers"
		summary.Improvements[2] = "Keep answers focused on the question"
	}

	if req.IncludeScore {
		summary.OverallRating = rating(answers, avg)
	}

	e.logger.Debug("offline summary produced", zap.Int("answers", answers), zap.Int("avg_words", avg))

	return summary, nil
}

func rating(answers, avg int) string {
	switch {
	case answers == 0:
		return "1"
	case avg < briefWords:
		return "2"
	case avg < detailedWords:
		return "3"
	default:
		return "4"
	}
}

// rubricFocus returns the first non-empty line of the rubric.
func rubricFocus(rubric string) string {
	for _, line := range strings.Split(rubric, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
