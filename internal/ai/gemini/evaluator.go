package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/logger"
	"github.com/spigell/mock-interviewer/internal/utils"
)

// ProviderName is the value logged in the ai_provider field.
const ProviderName = "gemini"

const (
	defaultMaxLogLength = 200
	maxFollowUps        = 3
)

const answerInstruction = `You are an expert interviewer evaluating a candidate's response.
Give constructive feedback based on the company's criteria. Be specific, point out strengths
and suggest improvements. Keep the feedback professional and focus on both content and delivery.
Structure the evaluation according to the provided criteria and structure.`

const summaryInstruction = `You are an expert interviewer writing the final evaluation of an interview.
Summarize the candidate's performance using the company's evaluation criteria, with concrete
strengths and areas for improvement, so the candidate understands how to improve.`

//go:embed answer_prompt.md
var answerTemplate string

//go:embed summary_prompt.md
var summaryTemplate string

var answerSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"evaluation": {Type: genai.TypeString, Description: "Feedback on the candidate's answer."},
		"follow_up_questions": {
			Type:        genai.TypeArray,
			Description: "Optional follow-up questions to ask the candidate.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"evaluation"},
}

var summarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"feedback":              {Type: genai.TypeString, Description: "Comprehensive written assessment."},
		"strengths":             {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"areas_for_improvement": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"overall_rating":        {Type: genai.TypeString, Description: "Overall rating when requested."},
	},
	Required: []string{"feedback", "strengths", "areas_for_improvement"},
}

type jsonGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string, schema *genai.Schema) (string, error)
	Model() string
}

// Evaluator implements ai.Evaluator on top of Gemini structured output.
type Evaluator struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Evaluator = (*Evaluator)(nil)

func NewEvaluator(generator jsonGenerator, log *zap.Logger, maxLogLength int) *Evaluator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Evaluator{
		generator: generator,
		logger:    logger.WithCommonFields(log, ProviderName, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (e *Evaluator) EvaluateAnswer(ctx context.Context, req ai.AnswerRequest) (*ai.AnswerEvaluation, error) {
	prompt := strings.NewReplacer(
		"{{COMPANY}}", req.Company,
		"{{INTERVIEW_TYPE}}", req.InterviewType,
		"{{HISTORY}}", ai.FormatHistory(req.History),
		"{{QUESTION}}", req.Question,
		"{{ANSWER}}", req.Answer,
		"{{RUBRIC}}", req.Rubric,
	).Replace(answerTemplate)

	raw, err := e.generate(ctx, "evaluate answer", answerInstruction, prompt, answerSchema)
	if err != nil {
		return nil, err
	}

	var out ai.AnswerEvaluation
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}

	out.Evaluation = strings.TrimSpace(out.Evaluation)
	if out.Evaluation == "" {
		return nil, fmt.Errorf("%w: response has no evaluation", ai.ErrDispatch)
	}

	out.FollowUpQuestions = cleanList(out.FollowUpQuestions)
	if len(out.FollowUpQuestions) > maxFollowUps {
		out.FollowUpQuestions = out.FollowUpQuestions[:maxFollowUps]
	}

	return &out, nil
}

func (e *Evaluator) Summarize(ctx context.Context, req ai.SummaryRequest) (*ai.Summary, error) {
	rating := "An overall rating is not required; leave overall_rating empty"
	if req.IncludeScore {
		rating = "An overall rating using the scale from the guidelines"
	}

	prompt := strings.NewReplacer(
		"{{COMPANY}}", req.Company,
		"{{INTERVIEW_TYPE}}", req.InterviewType,
		"{{HISTORY}}", ai.FormatHistory(req.History),
		"{{GUIDELINES}}", req.Guidelines,
		"{{RATING}}", rating,
	).Replace(summaryTemplate)

	raw, err := e.generate(ctx, "summarize interview", summaryInstruction, prompt, summarySchema)
	if err != nil {
		return nil, err
	}

	var out ai.Summary
	if err := decodeJSON(raw, &out); err != nil {
		return nil, err
	}

	out.Feedback = strings.TrimSpace(out.Feedback)
	if out.Feedback == "" {
		return nil, fmt.Errorf("%w: response has no feedback", ai.ErrDispatch)
	}
	out.Strengths = cleanList(out.Strengths)
	out.Improvements = cleanList(out.Improvements)
	out.OverallRating = strings.TrimSpace(out.OverallRating)

	return &out, nil
}

func (e *Evaluator) generate(ctx context.Context, op, system, prompt string, schema *genai.Schema) (string, error) {
	e.logger.Debug("gemini generate content request",
		zap.String("operation", op),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateJSON(ctx, system, prompt, schema)
	if err != nil {
		e.logger.Warn("gemini request failed", zap.String("operation", op), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ai.ErrDispatch, err)
	}

	e.logger.Debug("gemini generate content response",
		zap.String("operation", op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	return raw, nil
}

// decodeJSON parses model output into out. Scalars are coerced where the shape
// is close enough, e.g. a single string where a list is expected.
func decodeJSON(raw string, out any) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return fmt.Errorf("%w: parse gemini response: %w", ai.ErrDispatch, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: build decoder: %w", ai.ErrDispatch, err)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("%w: decode gemini response: %w", ai.ErrDispatch, err)
	}

	return nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
