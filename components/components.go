// Package components defines ECS components for the sea creatures.
package components

import "fmt"

// Kind identifies which variant a creature is.
type Kind uint8

const (
	KindNone Kind = iota // Empty cell; never stored on a creature
	KindFish
	KindShark
)

// String returns the display name for a Kind.
func (k Kind) String() string {
	switch k {
	case KindFish:
		return "fish"
	case KindShark:
		return "shark"
	default:
		return "none"
	}
}

// ParseKind converts a display name back into a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "fish":
		return KindFish, nil
	case "shark":
		return KindShark, nil
	}
	return KindNone, fmt.Errorf("unknown creature kind %q", s)
}

// Color returns the RGB display colour for the kind (sharks red, fish
// green, open sea blue).
func (k Kind) Color() uint32 {
	switch k {
	case KindShark:
		return 0xff0000
	case KindFish:
		return 0x00ff00
	default:
		return 0x0000ff
	}
}

// SearchMode selects the neighbourhood a creature inspects each turn.
type SearchMode uint8

const (
	SearchExtended    SearchMode = iota // All eight surrounding cells
	SearchTraditional                   // N, W, E, S only
)

// String returns the config name for a SearchMode.
func (m SearchMode) String() string {
	if m == SearchTraditional {
		return "traditional"
	}
	return "extended"
}

// ParseSearchMode converts a config name into a SearchMode.
func ParseSearchMode(s string) (SearchMode, error) {
	switch s {
	case "", "extended":
		return SearchExtended, nil
	case "traditional":
		return SearchTraditional, nil
	}
	return SearchExtended, fmt.Errorf("unknown search mode %q", s)
}

// Creature holds the state shared by every creature variant.
type Creature struct {
	ID       uint64 // Unique, monotonically allocated
	ParentID uint64 // 0 for the initial population
	Kind     Kind
	Pos      Position
	Mode     SearchMode

	Age      int // Ticks since birth or last spawn
	TotalAge int // Ticks since birth
	SpawnAge int // Age at which reproduction becomes eligible
	Alive    bool
}

// Starvation is the shark-only payload. Fish entities never carry it.
type Starvation struct {
	Counter   int // Ticks since last meal
	Threshold int // Dies once Counter exceeds this
}
