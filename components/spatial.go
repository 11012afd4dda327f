package components

import "fmt"

// Position is a cell coordinate on the sea. Always within bounds once it
// has been through Grid.Wrap.
type Position struct {
	X, Y int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}
