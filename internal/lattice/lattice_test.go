package lattice

import (
	"testing"

	"tumorsim/internal/rng"
)

type fakeComponent int64

func (f fakeComponent) Index() int64 { return int64(f) }

func TestMooreHas26Neighbors(t *testing.T) {
	n := Moore(Coord{5, 5, 5}, 10)
	if len(n) != 26 {
		t.Fatalf("expected 26 Moore neighbors, got %d", len(n))
	}
	seen := make(map[Coord]bool)
	for _, c := range n {
		if seen[c] {
			t.Fatalf("duplicate neighbor %v", c)
		}
		seen[c] = true
	}
}

func TestVonNeumannHas6Neighbors(t *testing.T) {
	if n := VonNeumann(Coord{0, 0, 0}, 10); len(n) != 6 {
		t.Fatalf("expected 6 von Neumann neighbors, got %d", len(n))
	}
}

func TestWrapPeriodic(t *testing.T) {
	n := Moore(Coord{0, 0, 0}, 4)
	for _, c := range n {
		if c.X < 0 || c.X >= 4 || c.Y < 0 || c.Y >= 4 || c.Z < 0 || c.Z >= 4 {
			t.Fatalf("neighbor %v escaped periodic bounds", c)
		}
	}
}

func TestSingleOccupancyInvariant(t *testing.T) {
	l := NewSingle(10)
	c := fakeComponent(1)
	if err := l.Occupy(c, Coord{1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	coord, ok := l.Locate(c)
	if !ok || coord != (Coord{1, 1, 1}) {
		t.Fatalf("locate mismatch: %v %v", coord, ok)
	}
	occ := l.Occupants(coord)
	if len(occ) != 1 || occ[0].Index() != c.Index() {
		t.Fatalf("occupants mismatch: %v", occ)
	}
}

func TestSingleOccupancyRejectsDoubleOccupy(t *testing.T) {
	l := NewSingle(10)
	a, b := fakeComponent(1), fakeComponent(2)
	if err := l.Occupy(a, Coord{2, 2, 2}); err != nil {
		t.Fatal(err)
	}
	if err := l.Occupy(b, Coord{2, 2, 2}); !ErrFull(err) {
		t.Fatalf("expected errFull, got %v", err)
	}
}

func TestSingleVacate(t *testing.T) {
	l := NewSingle(10)
	c := fakeComponent(1)
	l.Occupy(c, Coord{3, 3, 3})
	l.Vacate(c)
	if !l.IsEmpty(Coord{3, 3, 3}) {
		t.Fatal("expected site empty after vacate")
	}
	if _, ok := l.Locate(c); ok {
		t.Fatal("expected no location after vacate")
	}
}

func TestMultiOccupancyAccumulates(t *testing.T) {
	l := NewMulti(10)
	a, b := fakeComponent(1), fakeComponent(2)
	l.Occupy(a, Coord{1, 1, 1})
	l.Occupy(b, Coord{1, 1, 1})
	if got := l.CountOccupants(Coord{1, 1, 1}); got != 2 {
		t.Fatalf("expected 2 occupants, got %d", got)
	}
}

func TestMultiOccupancyMoveVacatesOldSite(t *testing.T) {
	l := NewMulti(10)
	a := fakeComponent(1)
	l.Occupy(a, Coord{1, 1, 1})
	l.Occupy(a, Coord{2, 2, 2})
	if got := l.CountOccupants(Coord{1, 1, 1}); got != 0 {
		t.Fatalf("expected old site vacated, got %d occupants", got)
	}
	if got := l.CountOccupants(Coord{2, 2, 2}); got != 1 {
		t.Fatalf("expected 1 occupant at new site, got %d", got)
	}
}

func TestRandomNeighborStaysInBounds(t *testing.T) {
	s := rng.New(42)
	l := NewSingle(8)
	for i := 0; i < 100; i++ {
		n := l.RandomNeighbor(s, Coord{4, 4, 4})
		if n.X < 0 || n.X >= 8 {
			t.Fatalf("neighbor out of bounds: %v", n)
		}
	}
}
