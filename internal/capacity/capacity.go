// Package capacity implements CapacityModel: a function from lattice
// coordinate to per-site cell capacity. Policies depend only on the
// coordinate, never on current occupancy.
package capacity

import "math"

// Coord is a lattice coordinate, duplicated here (rather than imported
// from internal/lattice) to keep capacity policies free of any
// dependency on the lattice's occupancy bookkeeping — a policy is pure
// math over a coordinate.
type Coord struct {
	X, Y, Z int
}

// Model maps a coordinate to its cell capacity and exposes the mean
// capacity over the whole lattice.
type Model interface {
	Capacity(c Coord) int
	MeanCapacity() float64
}

// Uniform is a constant-capacity model: every site has the same
// capacity K.
type Uniform struct {
	K int
}

func (u Uniform) Capacity(Coord) int      { return u.K }
func (u Uniform) MeanCapacity() float64   { return float64(u.K) }

// Radial is a capacity model that is a function of Euclidean distance
// from a center, for simulating e.g. necrotic-core or rim effects
// where capacity falls off (or rises) with radius. Side is the
// lattice's periodic side length P, used to compute the minimum-image
// distance under periodic wraparound.
type Radial struct {
	Center Coord
	Side   int
	// Base is the capacity at the center; Slope is added per unit
	// distance from the center (may be negative). Result is floored at
	// MinCapacity.
	Base        int
	Slope       float64
	MinCapacity int
}

func (r Radial) wrap(d, side int) float64 {
	if side <= 0 {
		return float64(d)
	}
	half := side / 2
	m := d % side
	if m > half {
		m -= side
	}
	if m < -half {
		m += side
	}
	return float64(m)
}

func (r Radial) Capacity(c Coord) int {
	dx := r.wrap(c.X-r.Center.X, r.Side)
	dy := r.wrap(c.Y-r.Center.Y, r.Side)
	dz := r.wrap(c.Z-r.Center.Z, r.Side)
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	k := int(math.Round(float64(r.Base) + r.Slope*dist))
	if k < r.MinCapacity {
		k = r.MinCapacity
	}
	return k
}

// MeanCapacity approximates the mean over the full P^3 lattice by
// sampling a coarse grid rather than visiting every site, which would
// be wasteful for large P; the radial profile is smooth so a stride
// sample converges quickly.
func (r Radial) MeanCapacity() float64 {
	if r.Side <= 0 {
		return float64(r.Base)
	}
	const stride = 4
	sum := 0.0
	n := 0
	for x := 0; x < r.Side; x += stride {
		for y := 0; y < r.Side; y += stride {
			for z := 0; z < r.Side; z += stride {
				sum += float64(r.Capacity(Coord{x, y, z}))
				n++
			}
		}
	}
	if n == 0 {
		return float64(r.Base)
	}
	return sum / float64(n)
}
