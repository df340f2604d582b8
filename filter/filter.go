// Package filter provides display filter functionality using expr-lang/expr
package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/view"
)

// GroupEnv is the environment for expression evaluation.
// It exposes one group of the comparison view.
type GroupEnv struct {
	TM   string `expr:"tm"`
	GLN  string `expr:"gln"`
	GTIN string `expr:"gtin"`

	// TICS lists the tics codes of the group's entries
	TICS []string `expr:"tics"`

	// MNumbers lists every m-number present in any entry
	MNumbers []string `expr:"m_numbers"`

	// EventNos lists every CSV eventno present in any entry
	EventNos []string `expr:"event_nos"`

	Differences []string `expr:"differences"`

	TicsCount     int `expr:"tics_count"`
	PropertyCount int `expr:"property_count"`
	CSVCount      int `expr:"csv_count"`

	HasDifferences bool `expr:"has_differences"`
	HasCSV         bool `expr:"has_csv"`
	HasProperties  bool `expr:"has_properties"`

	// Matched is true when some entry carries both properties and CSV events
	Matched bool `expr:"matched"`
}

// Compile compiles a display filter expression
func Compile(filterStr string) (func(*model.Group) bool, error) {
	processed := preprocessFilter(filterStr)

	program, err := expr.Compile(processed, expr.Env(GroupEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter '%s': %w", filterStr, err)
	}

	return func(g *model.Group) bool {
		return run(program, groupToEnv(g))
	}, nil
}

func run(program *vm.Program, env GroupEnv) bool {
	result, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	if b, ok := result.(bool); ok {
		return b
	}
	return false
}

// shorthands are bare words accepted in place of the boolean fields.
var shorthands = map[string]string{
	"match":      "matched",
	"diff":       "has_differences",
	"differs":    "has_differences",
	"csv":        "has_csv",
	"props":      "has_properties",
	"properties": "has_properties",
}

// preprocessFilter expands shorthand words and set literals to expr syntax.
func preprocessFilter(filter string) string {
	words := tokenizeFilter(filter)
	for i, word := range words {
		switch word {
		case "{": // "gtin in {a, b}" → "gtin in [a, b]"
			words[i] = "["
			continue
		case "}":
			words[i] = "]"
			continue
		}
		replacement, ok := shorthands[strings.ToLower(word)]
		if !ok {
			continue
		}
		// Not part of a member access like "x.csv"
		if i > 0 && words[i-1] == "." {
			continue
		}
		words[i] = replacement
	}
	return strings.Join(words, "")
}

// tokenizeFilter breaks a filter string into tokens while preserving structure.
// Quoted strings are kept as single tokens.
func tokenizeFilter(filter string) []string {
	var tokens []string
	var current strings.Builder
	var quote rune

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, ch := range filter {
		if quote != 0 {
			current.WriteRune(ch)
			if ch == quote {
				quote = 0
				flush()
			}
			continue
		}
		switch ch {
		case '"', '\'':
			flush()
			quote = ch
			current.WriteRune(ch)
		case ' ', '\t', '\n', '.', '(', ')', '[', ']', '{', '}', ',', '!':
			flush()
			tokens = append(tokens, string(ch))
		case '=', '>', '<', '&', '|':
			if current.Len() > 0 && !isOperator(current.String()) {
				flush()
			}
			current.WriteRune(ch)
		default:
			if current.Len() > 0 && isOperator(current.String()) {
				flush()
			}
			current.WriteRune(ch)
		}
	}
	flush()

	return tokens
}

func isOperator(s string) bool {
	switch s {
	case "=", "==", "!=", ">=", "<=", ">", "<", "&", "&&", "|", "||":
		return true
	}
	return false
}

// groupToEnv converts a Group to a GroupEnv for expression evaluation
func groupToEnv(g *model.Group) GroupEnv {
	env := GroupEnv{
		TM:        g.TM,
		GLN:       g.GLN,
		GTIN:      g.GTIN,
		TicsCount: len(g.TicsData),
		Matched:   g.HasMatch(),
	}

	seenM := make(map[string]struct{})
	seenE := make(map[string]struct{})
	for i := range g.TicsData {
		e := &g.TicsData[i]
		env.TICS = append(env.TICS, e.TICS)
		env.PropertyCount += len(e.Properties)
		env.CSVCount += len(e.CSV)
		for _, p := range e.Properties {
			if _, ok := seenM[p.MNumber]; !ok {
				seenM[p.MNumber] = struct{}{}
				env.MNumbers = append(env.MNumbers, p.MNumber)
			}
		}
		for _, ev := range e.CSV {
			if _, ok := seenE[ev.EventNo]; !ok {
				seenE[ev.EventNo] = struct{}{}
				env.EventNos = append(env.EventNos, ev.EventNo)
			}
		}
	}
	env.HasProperties = env.PropertyCount > 0
	env.HasCSV = env.CSVCount > 0

	env.Differences = view.ComputeDifferences(g)
	env.HasDifferences = len(env.Differences) > 0

	return env
}
