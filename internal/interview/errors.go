package interview

import "errors"

var (
	// ErrBadRequest is returned for missing or malformed input, before any state is touched.
	ErrBadRequest = errors.New("bad request")
	// ErrUnknownCompany is returned when the question bank has no such company.
	ErrUnknownCompany = errors.New("unknown company")
	// ErrUnknownInterviewType is returned when a known company has no questions for the type.
	ErrUnknownInterviewType = errors.New("unknown interview type")
	// ErrSessionNotFound is returned for session ids that were never issued.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInterviewFinished is returned for answers after the last question or after the interview ended.
	ErrInterviewFinished = errors.New("interview already finished")
	// ErrEvaluationFailed wraps evaluator failures during scoring or summarization.
	ErrEvaluationFailed = errors.New("evaluation failed")
)
