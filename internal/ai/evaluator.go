package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrDispatch marks any failure to obtain a usable result from an evaluator,
// including transport errors and model output that cannot be parsed.
var ErrDispatch = errors.New("evaluation dispatch failed")

// Role is the speaker of one history turn as seen by an evaluator.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Turn is one utterance of the interview transcript.
type Turn struct {
	Role Role
	Text string
}

// AnswerRequest asks for feedback on a single candidate answer.
type AnswerRequest struct {
	Company       string
	InterviewType string
	Question      string
	Answer        string
	// Rubric is the fully rendered evaluation prompt for the question.
	Rubric  string
	History []Turn
}

// AnswerEvaluation is the feedback for one answer.
type AnswerEvaluation struct {
	Evaluation        string   `json:"evaluation" mapstructure:"evaluation"`
	FollowUpQuestions []string `json:"follow_up_questions" mapstructure:"follow_up_questions"`
}

// SummaryRequest asks for the final feedback of a whole interview.
type SummaryRequest struct {
	Company       string
	InterviewType string
	// Guidelines is the rendered evaluation structure and criteria block.
	Guidelines   string
	IncludeScore bool
	History      []Turn
}

// Summary is the final interview feedback.
type Summary struct {
	Feedback      string   `json:"feedback" mapstructure:"feedback"`
	Strengths     []string `json:"strengths" mapstructure:"strengths"`
	Improvements  []string `json:"areas_for_improvement" mapstructure:"areas_for_improvement"`
	OverallRating string   `json:"overall_rating" mapstructure:"overall_rating"`
}

// Evaluator produces answer feedback and final summaries.
type Evaluator interface {
	EvaluateAnswer(ctx context.Context, req AnswerRequest) (*AnswerEvaluation, error)
	Summarize(ctx context.Context, req SummaryRequest) (*Summary, error)
}

// FormatHistory renders the transcript as "Interviewer: ..." / "Candidate: ..."
// paragraphs separated by blank lines.
func FormatHistory(history []Turn) string {
	var b strings.Builder
	for _, turn := range history {
		label := "Candidate"
		if turn.Role == RoleInterviewer {
			label = "Interviewer"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
