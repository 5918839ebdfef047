// Package address maps keys onto medium coordinates. The hash and the X/Z
// limits are part of the on-medium format: changing either moves every key to
// a different location and silently orphans data already written.
package address

import "fmt"

// Horizontal expansion limits. Never change these once data has been written.
const (
	XLimit = 65536
	ZLimit = 65536
)

// DefaultYLimit is the default probe chain depth. Unlike the X/Z limits it
// may be tuned: a deeper chain tolerates more collisions per location at the
// cost of more reads per operation in the worst case.
const DefaultYLimit = 32

// DefaultBase is the medium coordinate all hashed offsets are added to.
var DefaultBase = Position{X: -300000, Y: -300000, Z: -300000}

// Position is an absolute medium coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Add returns the component-wise sum of p and o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Hash folds key into a signed 32-bit accumulator, acc = acc*31 + r for
// every code point r. Overflow wraps.
func Hash(key string) int32 {
	var acc int32
	for _, r := range key {
		acc = acc*31 + int32(r)
	}
	return acc
}

// Map splits a hash into its horizontal offsets. Both results are
// non-negative for every hash, including negative ones.
func Map(hash int32) (x, z int) {
	h := int64(hash)
	x = int(floorMod(h, XLimit))
	z = int(floorMod(floorDiv(h, XLimit), ZLimit))
	return x, z
}

// Locate returns the position of probe index y for key under base.
func Locate(base Position, key string, y int) Position {
	x, z := Map(Hash(key))
	return base.Add(Position{X: x, Y: y, Z: z})
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
