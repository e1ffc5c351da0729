package session

import (
	"time"

	"github.com/spigell/mock-interviewer/internal/questionbank"
)

// Speaker identifies who produced a history turn.
type Speaker string

const (
	Interviewer Speaker = "interviewer"
	Candidate   Speaker = "candidate"
)

// Turn is one utterance in conversation order.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// State is the lifecycle position of a session.
type State string

const (
	// AwaitingAnswer means a question has been asked and an answer is expected.
	AwaitingAnswer State = "awaiting_answer"
	// Evaluating means an answer is being scored by the evaluator.
	Evaluating State = "evaluating"
	// AllQuestionsAnswered means every question has been answered and the
	// session waits for the wrap-up request.
	AllQuestionsAnswered State = "all_questions_answered"
	// Completed means the final summary has been produced.
	Completed State = "completed"
)

// Summary is the final feedback stored on a completed session.
type Summary struct {
	Feedback      string   `json:"feedback"`
	Strengths     []string `json:"strengths"`
	Improvements  []string `json:"areas_for_improvement"`
	OverallRating string   `json:"overall_rating,omitempty"`
}

// Session is the mutable state of one candidate's interview.
type Session struct {
	ID            string
	Company       string
	InterviewType string
	VoiceMode     bool

	// Questions is a snapshot taken at creation and never changes afterwards.
	Questions    []questionbank.Entry
	CurrentIndex int
	History      []Turn
	State        State
	Summary      *Summary

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total returns the number of questions in the session.
func (s *Session) Total() int { return len(s.Questions) }

// Remaining reports whether unanswered questions are left.
func (s *Session) Remaining() bool { return s.CurrentIndex < len(s.Questions) }

// Current returns the question awaiting an answer.
func (s *Session) Current() (questionbank.Entry, bool) {
	if !s.Remaining() {
		return questionbank.Entry{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// Append records a turn at the end of the history.
func (s *Session) Append(speaker Speaker, text string) {
	s.History = append(s.History, Turn{Speaker: speaker, Text: text})
}

// Clone returns a deep copy so callers can read it without holding locks.
func (s *Session) Clone() Session {
	out := *s
	out.Questions = append([]questionbank.Entry(nil), s.Questions...)
	out.History = append([]Turn(nil), s.History...)
	if s.Summary != nil {
		summary := *s.Summary
		summary.Strengths = append([]string(nil), s.Summary.Strengths...)
		summary.Improvements = append([]string(nil), s.Summary.Improvements...)
		out.Summary = &summary
	}
	return out
}
