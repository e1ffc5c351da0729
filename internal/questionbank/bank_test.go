package questionbank

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spigell/mock-interviewer/internal/interviewtype"
)

const testBank = `
companies:
  - name: Acme
    types:
      general:
        - question: Q1
          rubric: R1
        - question: Q2
          rubric: R2
      system design:
        - question: D1
          rubric: DR1
  - name: Globex
    types:
      technical:
        - question: T1
          rubric: TR1
`

func TestDefaultBank(t *testing.T) {
	bank, err := Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	companies := bank.Companies()
	expected := []string{"Google", "Facebook", "Amazon", "Microsoft"}
	if strings.Join(companies, ",") != strings.Join(expected, ",") {
		t.Fatalf("unexpected companies: %v", companies)
	}

	for _, name := range companies {
		entries, err := bank.Lookup(name, "general")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if len(entries) == 0 {
			t.Fatalf("%s: expected general questions", name)
		}
	}
}

func TestLookup(t *testing.T) {
	bank, err := Parse([]byte(testBank))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := bank.Lookup("Acme", "General")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].Question != "Q1" || entries[1].EvaluationPrompt != "R2" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	design, err := bank.Lookup("acme", "Systems Design")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(design) != 1 || design[0].Question != "D1" {
		t.Fatalf("unexpected system design entries: %+v", design)
	}

	// Returned slices are copies.
	entries[0].Question = "mutated"
	again, _ := bank.Lookup("Acme", "general")
	if again[0].Question != "Q1" {
		t.Fatalf("lookup must not expose internal state")
	}
}

func TestLookupErrors(t *testing.T) {
	bank, err := Parse([]byte(testBank))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := bank.Lookup("Initech", "general"); !errors.Is(err, ErrUnknownCompany) {
		t.Fatalf("expected ErrUnknownCompany, got %v", err)
	}

	if _, err := bank.Lookup("Globex", "behavioral"); !errors.Is(err, ErrUnknownInterviewType) {
		t.Fatalf("expected ErrUnknownInterviewType, got %v", err)
	}
}

func TestTypes(t *testing.T) {
	bank, err := Parse([]byte(testBank))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	types, err := bank.Types("Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(types) != 2 || types[0] != interviewtype.General || types[1] != interviewtype.SystemDesign {
		t.Fatalf("unexpected types: %v", types)
	}

	if _, err := bank.Types("nope"); !errors.Is(err, ErrUnknownCompany) {
		t.Fatalf("expected ErrUnknownCompany, got %v", err)
	}
}

func TestParseValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: "companies: []"},
		{name: "no name", doc: "companies:\n  - types:\n      general:\n        - question: q\n          rubric: r\n"},
		{name: "no types", doc: "companies:\n  - name: A\n"},
		{name: "no questions", doc: "companies:\n  - name: A\n    types:\n      general: []\n"},
		{name: "missing rubric", doc: "companies:\n  - name: A\n    types:\n      general:\n        - question: q\n"},
		{name: "duplicate type", doc: "companies:\n  - name: A\n    types:\n      tech:\n        - question: q\n          rubric: r\n      coding:\n        - question: q\n          rubric: r\n"},
		{name: "invalid yaml", doc: "companies: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	if err := os.WriteFile(path, []byte(testBank), 0o600); err != nil {
		t.Fatalf("write bank: %v", err)
	}

	bank, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := bank.Companies(); len(got) != 2 {
		t.Fatalf("unexpected companies: %v", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	if _, err := Load(""); err != nil {
		t.Fatalf("expected default bank for empty path, got %v", err)
	}
}
