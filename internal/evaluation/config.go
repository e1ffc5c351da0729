package evaluation

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/mock-interviewer/internal/interviewtype"
)

//go:embed default_configs.yaml
var defaultConfigs []byte

// Criterion is one weighted aspect the evaluator is asked to consider.
// Weights are advisory prompt content and are never validated to sum to one.
type Criterion struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Weight      float64 `yaml:"weight" json:"weight"`
}

// Structure describes the sections and rating scale the evaluation should follow.
type Structure struct {
	Sections     []string `yaml:"sections" json:"sections"`
	RatingScale  string   `yaml:"rating_scale" json:"rating_scale"`
	IncludeScore bool     `yaml:"include_score" json:"include_score"`
}

// Config is the rubric applied to a company and interview type.
type Config struct {
	Structure    Structure   `yaml:"structure" json:"structure"`
	Criteria     []Criterion `yaml:"criteria" json:"criteria"`
	PromptSuffix string      `yaml:"prompt_suffix" json:"prompt_suffix"`
}

type tables struct {
	Default   Config                       `yaml:"default"`
	Companies map[string]map[string]Config `yaml:"companies"`
}

func (c Config) clone() Config {
	out := c
	out.Structure.Sections = append([]string(nil), c.Structure.Sections...)
	out.Criteria = append([]Criterion(nil), c.Criteria...)
	return out
}

func (c Config) validate() error {
	if len(c.Criteria) == 0 {
		return errors.New("at least one criterion is required")
	}
	if len(c.Structure.Sections) == 0 {
		return errors.New("at least one structure section is required")
	}
	for i, criterion := range c.Criteria {
		if strings.TrimSpace(criterion.Name) == "" {
			return fmt.Errorf("criterion %d must have a name", i+1)
		}
		if criterion.Weight < 0 || criterion.Weight > 1 {
			return fmt.Errorf("criterion %q weight %v is outside [0,1]", criterion.Name, criterion.Weight)
		}
	}
	return nil
}

func parseTables(data []byte) (*tables, error) {
	var t tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if err := t.Default.validate(); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}

	for company, byType := range t.Companies {
		for rawType, cfg := range byType {
			if err := cfg.validate(); err != nil {
				return nil, fmt.Errorf("%s/%s: %w", company, rawType, err)
			}
		}
	}

	return &t, nil
}

func normalizeTables(t *tables) map[string]map[interviewtype.Type]Config {
	companies := make(map[string]map[interviewtype.Type]Config, len(t.Companies))
	for company, byType := range t.Companies {
		normalized := make(map[interviewtype.Type]Config, len(byType))
		for rawType, cfg := range byType {
			normalized[interviewtype.Normalize(rawType)] = cfg
		}
		companies[strings.TrimSpace(company)] = normalized
	}
	return companies
}

func readTables(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultConfigs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading evaluation configs %s: %w", path, err)
	}
	return data, nil
}
