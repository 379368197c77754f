// Package parser turns a body designation into the ordered path of tree
// elements it occupies below its star system.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MainStar is the element name given to the primary star of a system whose
// primary designator is not (yet) known.
const MainStar = "Main Star"

// Default thresholds. They are tuned against the game's naming conventions.
const (
	DefaultMaxElements                = 5
	DefaultBarycentreDesignatorMinLen = 2
)

// ErrUnparseable is returned when a designation yields no elements or more
// than the configured maximum.
var ErrUnparseable = errors.New("parser: unparseable designation")

// Rules holds the tunable thresholds of the designation grammar.
type Rules struct {
	// MaxElements rejects paths deeper than this many elements.
	MaxElements int
	// BarycentreDesignatorMinLen is the length from which a leading
	// designator such as "AB" names a barycentre rather than a star.
	BarycentreDesignatorMinLen int
}

// DefaultRules returns the standard thresholds.
func DefaultRules() Rules {
	return Rules{
		MaxElements:                DefaultMaxElements,
		BarycentreDesignatorMinLen: DefaultBarycentreDesignatorMinLen,
	}
}

// Result holds the output of parsing a designation.
type Result struct {
	// Elements is the path from the top-level node to the body itself.
	Elements []string
	// Rest is the designation with the system name stripped. Empty when the
	// designation names the primary star or is unrelated to the system.
	Rest string
	// Related reports whether the designation is prefixed by the system name.
	Related bool
	// TopIsBarycentre classifies the first element.
	TopIsBarycentre bool
	IsBeltCluster   bool
	IsRing          bool
	// CustomName is set by ParseBody for bodies whose name is not a
	// structural designation.
	CustomName string
}

// Rest strips the system name from a designation, ignoring case. ok is false
// when the designation is not related to the system name at all.
func Rest(designation, systemName string) (rest string, ok bool) {
	designation = strings.TrimSpace(designation)
	systemName = strings.TrimSpace(systemName)
	if systemName == "" || len(designation) < len(systemName) {
		return "", false
	}
	if !strings.EqualFold(designation[:len(systemName)], systemName) {
		return "", false
	}
	tail := designation[len(systemName):]
	if tail == "" {
		return "", true
	}
	if tail[0] != ' ' {
		return "", false
	}
	return strings.TrimSpace(tail), true
}

// Related reports whether designation is prefixed by systemName.
func Related(designation, systemName string) bool {
	_, ok := Rest(designation, systemName)
	return ok
}

// Parse splits designation into tree elements. primary names the top-level
// node for bodies with no star designator; empty means MainStar.
func (r Rules) Parse(designation, systemName, primary string) (*Result, error) {
	if primary == "" {
		primary = MainStar
	}
	r = r.withDefaults()

	rest, related := Rest(designation, systemName)
	res := &Result{Rest: rest, Related: related}

	switch {
	case !related:
		if name := strings.TrimSpace(designation); name != "" {
			res.Elements = []string{name}
		}
	case rest == "":
		res.Elements = []string{primary}
	default:
		res.Elements = r.splitRest(rest, primary, res)
	}

	if len(res.Elements) == 0 || len(res.Elements) > r.MaxElements {
		return nil, fmt.Errorf("%w: %q in %q yields %d elements", ErrUnparseable, designation, systemName, len(res.Elements))
	}
	return res, nil
}

// ParseBody is the variant used for events without a canonical scan payload.
// Names that are not structural designations become the CustomName.
func (r Rules) ParseBody(bodyName, systemName, primary string) (*Result, error) {
	res, err := r.Parse(bodyName, systemName, primary)
	if err != nil {
		return nil, err
	}
	if !res.Related {
		res.CustomName = strings.TrimSpace(bodyName)
	}
	return res, nil
}

func (r Rules) splitRest(rest, primary string, res *Result) []string {
	tokens := strings.Fields(rest)
	n := len(tokens)

	switch {
	case n == 4 && isDesignatorLetter(tokens[0]) && strings.EqualFold(tokens[1], "belt") && strings.EqualFold(tokens[2], "cluster"):
		res.IsBeltCluster = true
		return []string{primary, BeltName(tokens[0]), "cluster " + tokens[3]}
	case n == 5 && isDesignatorLetter(tokens[1]) && strings.EqualFold(tokens[2], "belt") && strings.EqualFold(tokens[3], "cluster"):
		res.IsBeltCluster = true
		tokens = []string{tokens[0], BeltName(tokens[1]), "cluster " + tokens[4]}
	case n >= 2 && strings.EqualFold(tokens[n-1], "ring") && isDesignatorLetter(tokens[n-2]):
		res.IsRing = true
		tokens = append(tokens[:n-2:n-2], tokens[n-2]+" ring")
		if len(tokens) == 1 {
			tokens = append([]string{primary}, tokens...)
		}
	}

	first := tokens[0]
	if startsWithDigit(first) {
		return append([]string{primary}, tokens...)
	}
	if len(first) >= r.BarycentreDesignatorMinLen && first != primary {
		res.TopIsBarycentre = true
	}
	return tokens
}

// BeltName normalises a belt designator letter to its element name.
func BeltName(letter string) string {
	return strings.ToUpper(letter) + " belt"
}

func (r Rules) withDefaults() Rules {
	if r.MaxElements <= 0 {
		r.MaxElements = DefaultMaxElements
	}
	if r.BarycentreDesignatorMinLen <= 0 {
		r.BarycentreDesignatorMinLen = DefaultBarycentreDesignatorMinLen
	}
	return r
}

func isDesignatorLetter(s string) bool {
	return len(s) == 1 && unicode.IsLetter(rune(s[0]))
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
