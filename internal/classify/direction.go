package classify

import (
	"strings"

	"github.com/rohankatakam/pathgraph/internal/biopax"
)

// Sides of a conversion
const (
	SideLeft  = "left"
	SideRight = "right"
)

// Participant is one entity taking part in a conversion, with the side of the
// conversion it was listed on.
type Participant struct {
	Ref  string
	Side string
}

// Orientation is one reading of a conversion: which participants are
// consumed and which are produced.
type Orientation struct {
	Reactants []Participant
	Products  []Participant
}

// directions maps every accepted spelling (upper case, underscores) of a
// conversion or step direction to its normalized value
var directions = map[string]string{
	"LEFT_TO_RIGHT":              biopax.DirectionLeftToRight,
	"PHYSIOL_LEFT_TO_RIGHT":      biopax.DirectionLeftToRight,
	"IRREVERSIBLE_LEFT_TO_RIGHT": biopax.DirectionLeftToRight,
	"RIGHT_TO_LEFT":              biopax.DirectionRightToLeft,
	"PHYSIOL_RIGHT_TO_LEFT":      biopax.DirectionRightToLeft,
	"IRREVERSIBLE_RIGHT_TO_LEFT": biopax.DirectionRightToLeft,
	"REVERSIBLE":                 biopax.DirectionReversible,
}

// ParseDirection normalizes a raw direction value. ok is false for empty
// and unrecognized values.
func ParseDirection(raw string) (string, bool) {
	d := strings.ToUpper(strings.TrimSpace(raw))
	d = strings.ReplaceAll(d, "-", "_")
	dir, ok := directions[d]
	return dir, ok
}

// Direction normalizes a conversion direction. An unspecified or unknown
// direction reads as LEFT_TO_RIGHT.
func Direction(el *biopax.Element) string {
	if dir, ok := ParseDirection(el.Direction); ok {
		return dir
	}
	return biopax.DirectionLeftToRight
}

// UnknownDirection reports a direction value that is set but not recognized
func UnknownDirection(el *biopax.Element) bool {
	if strings.TrimSpace(el.Direction) == "" {
		return false
	}
	_, ok := ParseDirection(el.Direction)
	return !ok
}

// Orientations returns the readings of a conversion. Reversible conversions
// have two, mirror images of each other.
func Orientations(el *biopax.Element) []Orientation {
	left := participants(el.Left, SideLeft)
	right := participants(el.Right, SideRight)

	switch Direction(el) {
	case biopax.DirectionRightToLeft:
		return []Orientation{{Reactants: right, Products: left}}
	case biopax.DirectionReversible:
		return []Orientation{
			{Reactants: left, Products: right},
			{Reactants: right, Products: left},
		}
	default:
		return []Orientation{{Reactants: left, Products: right}}
	}
}

func participants(refs []string, side string) []Participant {
	out := make([]Participant, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		out = append(out, Participant{Ref: ref, Side: side})
	}
	return out
}
