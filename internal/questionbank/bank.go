package questionbank

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/mock-interviewer/internal/interviewtype"
)

var (
	// ErrUnknownCompany is returned when the bank has no entry for a company.
	ErrUnknownCompany = errors.New("unknown company")
	// ErrUnknownInterviewType is returned when a known company has no questions for a type.
	ErrUnknownInterviewType = errors.New("unknown interview type")
)

//go:embed default_bank.yaml
var defaultBank []byte

// Entry is a single question together with the rubric used to score the answer.
type Entry struct {
	Question         string `yaml:"question" json:"question"`
	EvaluationPrompt string `yaml:"rubric" json:"evaluation_prompt"`
}

type document struct {
	Companies []companyDocument `yaml:"companies"`
}

type companyDocument struct {
	Name  string             `yaml:"name"`
	Types map[string][]Entry `yaml:"types"`
}

type company struct {
	name  string
	types map[interviewtype.Type][]Entry
}

// Bank is an immutable company -> interview type -> questions table.
// It is safe for concurrent use.
type Bank struct {
	companies []*company
	byName    map[string]*company
}

// Default returns the bank shipped with the binary.
func Default() (*Bank, error) {
	return Parse(defaultBank)
}

// Load reads a bank from a YAML file. An empty path yields the default bank.
func Load(path string) (*Bank, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank %s: %w", path, err)
	}

	bank, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("question bank %s: %w", path, err)
	}

	return bank, nil
}

// Parse decodes and validates a YAML question bank.
func Parse(data []byte) (*Bank, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if len(doc.Companies) == 0 {
		return nil, errors.New("at least one company is required")
	}

	bank := &Bank{byName: make(map[string]*company, len(doc.Companies))}

	for i, c := range doc.Companies {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("company %d must have a name", i)
		}
		if _, ok := bank.byName[name]; ok {
			return nil, fmt.Errorf("company %q is declared twice", name)
		}
		if len(c.Types) == 0 {
			return nil, fmt.Errorf("company %q has no interview types", name)
		}

		parsed := &company{name: name, types: make(map[interviewtype.Type][]Entry, len(c.Types))}
		for rawType, entries := range c.Types {
			t := interviewtype.Normalize(rawType)
			if _, ok := parsed.types[t]; ok {
				return nil, fmt.Errorf("company %q: interview type %q is declared twice", name, t)
			}
			if len(entries) == 0 {
				return nil, fmt.Errorf("company %q: interview type %q has no questions", name, t)
			}
			for j, e := range entries {
				if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.EvaluationPrompt) == "" {
					return nil, fmt.Errorf("company %q: %s question %d must have question and rubric", name, t, j+1)
				}
			}
			parsed.types[t] = entries
		}

		bank.companies = append(bank.companies, parsed)
		bank.byName[name] = parsed
	}

	return bank, nil
}

// Companies returns the company names in declaration order.
func (b *Bank) Companies() []string {
	names := make([]string, 0, len(b.companies))
	for _, c := range b.companies {
		names = append(names, c.name)
	}
	return names
}

// Types returns the interview types offered for a company.
func (b *Bank) Types(companyName string) ([]interviewtype.Type, error) {
	c, ok := b.find(companyName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompany, companyName)
	}

	types := make([]interviewtype.Type, 0, len(c.types))
	for _, t := range interviewtype.All() {
		if _, ok := c.types[t]; ok {
			types = append(types, t)
		}
	}
	return types, nil
}

// Lookup returns a copy of the question list for a company and interview type.
// The interview type is normalized before the lookup.
func (b *Bank) Lookup(companyName, interviewType string) ([]Entry, error) {
	c, ok := b.find(companyName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompany, companyName)
	}

	entries, ok := c.types[interviewtype.Normalize(interviewType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %q questions", ErrUnknownInterviewType, c.name, interviewType)
	}

	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// CanonicalName returns the declared spelling of a company name.
func (b *Bank) CanonicalName(companyName string) (string, bool) {
	c, ok := b.find(companyName)
	if !ok {
		return "", false
	}
	return c.name, true
}

func (b *Bank) find(name string) (*company, bool) {
	name = strings.TrimSpace(name)
	if c, ok := b.byName[name]; ok {
		return c, true
	}
	for _, c := range b.companies {
		if strings.EqualFold(c.name, name) {
			return c, true
		}
	}
	return nil, false
}
