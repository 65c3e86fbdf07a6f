package game

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// AbilityKind is the closed set of ability tags the engine understands.
// New behavior is added by extending this set, never by matching card text at call sites.
type AbilityKind int

const (
	AbilityOnPlay AbilityKind = iota
	AbilityMain
	AbilityActiveMain
	AbilityBlocker
	AbilityRush
	AbilityTrigger
	AbilityCounter
	AbilityAlwaysOn // static text, optionally gated by a turn or DON!! condition
)

func (k AbilityKind) String() string {
	switch k {
	case AbilityOnPlay:
		return "On Play"
	case AbilityMain:
		return "Main"
	case AbilityActiveMain:
		return "Active Main"
	case AbilityBlocker:
		return "Blocker"
	case AbilityRush:
		return "Rush"
	case AbilityTrigger:
		return "Trigger"
	case AbilityCounter:
		return "Counter"
	case AbilityAlwaysOn:
		return "Always On"
	default:
		return "Unknown"
	}
}

// abilityKeywords are matched case-insensitively against the start of a bracket.
var abilityKeywords = []struct {
	word string
	kind AbilityKind
}{
	{"on play", AbilityOnPlay},
	{"active main", AbilityActiveMain},
	{"main", AbilityMain},
	{"blocker", AbilityBlocker},
	{"rush", AbilityRush},
	{"trigger", AbilityTrigger},
	{"counter", AbilityCounter},
	{"your turn", AbilityAlwaysOn},
	{"opponent's turn", AbilityAlwaysOn},
}

// Ability is one parsed tag plus the prose that follows it.
type Ability struct {
	Kind         AbilityKind
	Effect       string
	DonCost      int // activation cost in DON!! tokens, 0 if none
	CounterValue int // signed power modifier for counter tags
}

func (a Ability) String() string {
	s := "[" + a.Kind.String() + "]"
	if a.DonCost > 0 {
		s += fmt.Sprintf(" (DON!! x%d)", a.DonCost)
	}
	if a.CounterValue != 0 {
		s += fmt.Sprintf(" %+d", a.CounterValue)
	}
	return s
}

// Abilities is the cached, parsed tag set of a card.
type Abilities []Ability

// Has reports whether any ability of the given kind is present.
func (as Abilities) Has(kind AbilityKind) bool {
	for _, a := range as {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Get returns the first ability of the given kind.
func (as Abilities) Get(kind AbilityKind) (Ability, bool) {
	for _, a := range as {
		if a.Kind == kind {
			return a, true
		}
	}
	return Ability{}, false
}

// CounterValue returns the modifier of the first counter tag, or 0.
func (as Abilities) CounterValue() int {
	a, ok := as.Get(AbilityCounter)
	if !ok {
		return 0
	}
	return a.CounterValue
}

// --- Parser ---

type abilityText struct {
	Segments []*textSegment `parser:"@@*"`
}

type textSegment struct {
	Tag   string `parser:"  @Tag"`
	Prose string `parser:"| @Prose"`
}

var (
	abilityLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Tag", Pattern: `\[[^\[\]]*\]`},
		{Name: "Prose", Pattern: `[^\[]+|\[`},
	})
	abilityParser = participle.MustBuild[abilityText](participle.Lexer(abilityLexer))

	donTagRe      = regexp.MustCompile(`(?i)^\[DON!!\s*x(\d+)\]$`)
	donInlineRe   = regexp.MustCompile(`(?i)DON!!\s*x(\d+)`)
	signedValueRe = regexp.MustCompile(`([+-])\s*(\d+)`)
	plusValueRe   = regexp.MustCompile(`\+(\d+)`)
)

// ParseAbilities splits card text into bracketed keyword tags. A keyword tag may be
// followed (after optional whitespace) by a [DON!! xN] cost tag; the prose up to the
// next bracket is the ability's effect. A [DON!! xN] tag that leads instead gates
// the keyword after it, or forms an always-on ability with the prose that follows.
func ParseAbilities(text string) (Abilities, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parsed, err := abilityParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("parse ability text: %w", err)
	}

	segs := parsed.Segments
	var out Abilities
	gate := 0 // leading DON!! requirement for the next keyword
	for i := 0; i < len(segs); i++ {
		if segs[i].Tag == "" {
			continue
		}
		if m := donTagRe.FindStringSubmatch(segs[i].Tag); m != nil {
			cost, _ := strconv.Atoi(m[1])
			j := i + 1
			if j < len(segs) && segs[j].Prose != "" && strings.TrimSpace(segs[j].Prose) == "" {
				j++
			}
			if j < len(segs) && segs[j].Tag != "" {
				if _, ok := keywordOf(segs[j].Tag); ok {
					gate = cost
					continue
				}
			}
			ab := Ability{Kind: AbilityAlwaysOn, DonCost: cost}
			if j < len(segs) && segs[j].Prose != "" {
				ab.Effect = strings.TrimSpace(segs[j].Prose)
				i = j
			}
			out = append(out, ab)
			gate = 0
			continue
		}
		kind, ok := keywordOf(segs[i].Tag)
		if !ok {
			continue
		}
		tag := segs[i].Tag
		ab := Ability{Kind: kind}

		// Optional cost tag, separated by whitespace only.
		j := i + 1
		if j < len(segs) && segs[j].Prose != "" && strings.TrimSpace(segs[j].Prose) == "" &&
			j+1 < len(segs) && donTagRe.MatchString(segs[j+1].Tag) {
			j++
		}
		if j < len(segs) && segs[j].Tag != "" {
			if m := donTagRe.FindStringSubmatch(segs[j].Tag); m != nil {
				ab.DonCost, _ = strconv.Atoi(m[1])
				i = j
				j++
			}
		}
		if ab.DonCost == 0 {
			if m := donInlineRe.FindStringSubmatch(tag); m != nil {
				ab.DonCost, _ = strconv.Atoi(m[1])
			}
		}
		if ab.DonCost == 0 {
			ab.DonCost = gate
		}
		gate = 0
		if j < len(segs) && segs[j].Prose != "" {
			ab.Effect = strings.TrimSpace(segs[j].Prose)
			i = j
		}
		if kind == AbilityCounter {
			ab.CounterValue = counterValue(tag, ab.Effect)
		}
		out = append(out, ab)
	}
	return out, nil
}

func keywordOf(tag string) (AbilityKind, bool) {
	inner := strings.ToLower(strings.TrimPrefix(tag, "["))
	for _, kw := range abilityKeywords {
		if strings.HasPrefix(inner, kw.word) {
			return kw.kind, true
		}
	}
	return 0, false
}

// counterValue reads "+N"/"-N" from the tag itself, falling back to the first "+N" in
// the effect prose. A negative value weakens the attacker.
func counterValue(tag, effect string) int {
	if m := signedValueRe.FindStringSubmatch(tag); m != nil {
		v, _ := strconv.Atoi(m[2])
		if m[1] == "-" {
			return -v
		}
		return v
	}
	if m := plusValueRe.FindStringSubmatch(effect); m != nil {
		v, _ := strconv.Atoi(m[1])
		return v
	}
	return 0
}
