package evaluation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/mock-interviewer/internal/interviewtype"
)

// Resolver picks the evaluation config for a company and interview type.
// It is read-only after construction and safe for concurrent use.
type Resolver struct {
	fallback  Config
	companies map[string]map[interviewtype.Type]Config
}

// tier is one step of the fallback chain. It reports false when it has nothing to offer.
type tier func() (Config, bool)

// NewDefaultResolver returns a resolver backed by the built-in tables.
func NewDefaultResolver() (*Resolver, error) {
	return NewResolverFromFile("")
}

// NewResolverFromFile loads the tables from a YAML file. An empty path selects
// the built-in tables.
func NewResolverFromFile(path string) (*Resolver, error) {
	data, err := readTables(path)
	if err != nil {
		return nil, err
	}
	return NewResolver(data)
}

// NewResolver builds a resolver from a YAML document with a `default` config and
// a `companies` table keyed by company and interview type.
func NewResolver(data []byte) (*Resolver, error) {
	t, err := parseTables(data)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		fallback:  t.Default,
		companies: normalizeTables(t),
	}, nil
}

// Default returns the global default config.
func (r *Resolver) Default() Config {
	return r.fallback.clone()
}

// Resolve never fails: it walks the fallback chain
// company/type -> company/general -> global default.
func (r *Resolver) Resolve(company, interviewType string) Config {
	t := interviewtype.Normalize(interviewType)

	for _, next := range r.chain(company, t) {
		if cfg, ok := next(); ok {
			return cfg.clone()
		}
	}

	return r.fallback.clone()
}

func (r *Resolver) chain(company string, t interviewtype.Type) []tier {
	return []tier{
		func() (Config, bool) { return r.companyTier(company, t) },
		func() (Config, bool) { return r.companyTier(company, interviewtype.General) },
		func() (Config, bool) { return r.fallback, true },
	}
}

func (r *Resolver) companyTier(company string, t interviewtype.Type) (Config, bool) {
	byType, ok := r.company(company)
	if !ok {
		return Config{}, false
	}
	cfg, ok := byType[t]
	return cfg, ok
}

func (r *Resolver) company(name string) (map[interviewtype.Type]Config, bool) {
	name = strings.TrimSpace(name)
	if byType, ok := r.companies[name]; ok {
		return byType, true
	}
	for known, byType := range r.companies {
		if strings.EqualFold(known, name) {
			return byType, true
		}
	}
	return nil, false
}

// RenderPrompt appends the criteria block, the structure block, the optional
// rating instruction and finally the suffix to the base rubric. The suffix is
// always the last element of the output.
func RenderPrompt(base string, cfg Config) string {
	var b strings.Builder

	b.WriteString(base)

	b.WriteString("\n\nEvaluation Criteria:\n")
	for _, c := range cfg.Criteria {
		fmt.Fprintf(&b, "- %s: %s (Weight: %s)\n", c.Name, c.Description, strconv.FormatFloat(c.Weight, 'g', -1, 64))
	}

	b.WriteString("\n\nEvaluation Structure:\n")
	for _, section := range cfg.Structure.Sections {
		fmt.Fprintf(&b, "- %s\n", section)
	}

	if cfg.Structure.IncludeScore {
		scale := cfg.Structure.RatingScale
		if strings.TrimSpace(scale) == "" {
			scale = "1-5"
		}
		fmt.Fprintf(&b, "\nPlease include a rating using this scale: %s", scale)
	}

	b.WriteString("\n\n")
	b.WriteString(cfg.PromptSuffix)

	return b.String()
}
