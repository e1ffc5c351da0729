package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/ai"
	"github.com/spigell/mock-interviewer/internal/ai/gemini"
	"github.com/spigell/mock-interviewer/internal/ai/offline"
	"github.com/spigell/mock-interviewer/internal/evaluation"
	"github.com/spigell/mock-interviewer/internal/interview"
	"github.com/spigell/mock-interviewer/internal/logger"
	"github.com/spigell/mock-interviewer/internal/questionbank"
	"github.com/spigell/mock-interviewer/internal/secrets"
	"github.com/spigell/mock-interviewer/internal/session"
)

const (
	providerGemini  = "gemini"
	providerOffline = "offline"
)

// setup builds the logger and loads the configuration. Failures are fatal.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	return logger, config
}

func newService(ctx context.Context, config *Config, logger *zap.Logger) (*interview.Service, error) {
	bank, err := questionbank.Load(config.QuestionBankFile)
	if err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}

	resolver, err := evaluation.NewResolverFromFile(config.EvaluationConfigFile)
	if err != nil {
		return nil, fmt.Errorf("loading evaluation configs: %w", err)
	}

	evaluator, err := newEvaluator(ctx, config.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("creating evaluator: %w", err)
	}

	logger.Debug("question bank loaded", zap.Strings("companies", bank.Companies()))

	store := session.NewMemoryStore(session.WithLogger(logger))

	return interview.NewService(bank, resolver, store, evaluator, logger), nil
}

func newEvaluator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Evaluator, error) {
	if cfg == nil {
		cfg = &AIConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case providerOffline:
		logger.Info("using offline evaluator", zap.String("hint", "set ai.provider to gemini for model feedback"))
		return offline.NewEvaluator(logger), nil
	case "", providerGemini:
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	geminiCfg := cfg.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  geminiCfg.APIKeyFile,
		Value: geminiCfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY, or use ai.provider=offline)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, geminiCfg.Model, geminiCfg.Timeout)
	if err != nil {
		return nil, err
	}

	logger.Info("using gemini evaluator",
		zap.String("model", generator.Model()),
		zap.Duration("timeout", geminiCfg.Timeout),
	)

	return gemini.NewEvaluator(generator, logger, geminiCfg.MaxLogLength), nil
}
