package interviewtype

import "strings"

// Type is the canonical interview type used as a key in the question bank and
// evaluation tables.
type Type string

const (
	Technical    Type = "technical"
	General      Type = "general"
	Behavioral   Type = "behavioral"
	SystemDesign Type = "system_design"
)

var synonyms = map[string]Type{
	"technical":      Technical,
	"tech":           Technical,
	"coding":         Technical,
	"general":        General,
	"behavioral":     Behavioral,
	"behavioural":    Behavioral,
	"behavior":       Behavioral,
	"leadership":     Behavioral,
	"system design":  SystemDesign,
	"systems design": SystemDesign,
	"sys design":     SystemDesign,
	"systemdesign":   SystemDesign,
}

// All returns the canonical types in presentation order.
func All() []Type {
	return []Type{General, Technical, Behavioral, SystemDesign}
}

// Normalize maps free-form user input onto a canonical Type. Matching is
// case-insensitive and treats underscores, hyphens and repeated spaces as a
// single space. Unrecognized input maps to General.
func Normalize(raw string) Type {
	key := strings.ToLower(raw)
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")

	if t, ok := synonyms[key]; ok {
		return t
	}

	return General
}

func (t Type) String() string { return string(t) }
