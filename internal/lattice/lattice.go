// Package lattice implements the periodic cubic grid components live
// on: coordinate arithmetic mod the lattice side P, Moore/von Neumann
// neighbor enumeration, and two occupancy realizations (single- and
// multi-occupancy) that both maintain a bidirectional site<->component
// index.
//
// Grounded on the teacher's internal/spatial/voxel_grid.go (hash-mapped
// voxel storage, floor-division coordinate hashing) and
// internal/spatial/streaming_grid.go (RWMutex-guarded VoxelKey map),
// generalized from a sparse hash-mapped voxel set to a fixed P^3
// periodic grid with a reverse component->coord index.
package lattice

import (
	"fmt"

	"tumorsim/internal/rng"
)

// Coord is a lattice site, periodic mod Side.
type Coord struct {
	X, Y, Z int
}

// ComponentRef is the minimal identity a lattice needs to track an
// occupant: its index, independent of the component
// package to avoid an import cycle (internal/tumor binds the two).
type ComponentRef interface {
	Index() int64
}

// Grid is the common surface both occupancy realizations satisfy, so
// callers (the tumor scheduler) can hold either behind one interface
// and let componentType pick the concrete realization at construction
// time.
type Grid interface {
	Side() int
	Occupy(c ComponentRef, coord Coord) error
	Vacate(c ComponentRef)
	Locate(c ComponentRef) (Coord, bool)
	Occupants(coord Coord) []ComponentRef
	IsEmpty(coord Coord) bool
	CountOccupants(coord Coord) int
	RandomNeighbor(s *rng.Source, coord Coord) Coord
	Neighbors(coord Coord) []Coord
}

var (
	_ Grid = (*Single)(nil)
	_ Grid = (*Multi)(nil)
)

// wrap reduces v into [0, side).
func wrap(v, side int) int {
	m := v % side
	if m < 0 {
		m += side
	}
	return m
}

// Moore enumerates the 26 Moore neighbors of c on a periodic grid of
// side P (excludes c itself).
func Moore(c Coord, side int) []Coord {
	out := make([]Coord, 0, 26)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out = append(out, Coord{
					X: wrap(c.X+dx, side),
					Y: wrap(c.Y+dy, side),
					Z: wrap(c.Z+dz, side),
				})
			}
		}
	}
	return out
}

// VonNeumann enumerates the 6 face neighbors of c on a periodic grid.
func VonNeumann(c Coord, side int) []Coord {
	deltas := [6][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	out := make([]Coord, 0, 6)
	for _, d := range deltas {
		out = append(out, Coord{
			X: wrap(c.X+d[0], side),
			Y: wrap(c.Y+d[1], side),
			Z: wrap(c.Z+d[2], side),
		})
	}
	return out
}

// RandomMooreNeighbor picks one of c's 26 Moore neighbors uniformly at
// random.
func RandomMooreNeighbor(s *rng.Source, c Coord, side int) Coord {
	n := Moore(c, side)
	return n[s.UniformInt(0, len(n)-1)]
}

// errFull is returned by Occupy when a single-occupancy site is
// already taken.
var errFull = fmt.Errorf("lattice: site already occupied")

// ErrFull reports whether err is the single-occupancy "site full" error.
func ErrFull(err error) bool { return err == errFull }

// Single is a single-occupancy lattice: each site holds at most one
// component. Used for Demes and for single-cell-capacity Cell/Lineage
// deployments.
type Single struct {
	side    int
	sites   map[Coord]ComponentRef
	locate  map[int64]Coord
}

// NewSingle creates an empty single-occupancy lattice of side P.
func NewSingle(side int) *Single {
	return &Single{side: side, sites: make(map[Coord]ComponentRef), locate: make(map[int64]Coord)}
}

func (l *Single) Side() int { return l.side }

// Occupy places c at coord. Returns errFull if coord is already taken
// by a different component.
func (l *Single) Occupy(c ComponentRef, coord Coord) error {
	coord = Coord{wrap(coord.X, l.side), wrap(coord.Y, l.side), wrap(coord.Z, l.side)}
	if existing, ok := l.sites[coord]; ok && existing.Index() != c.Index() {
		return errFull
	}
	if prev, ok := l.locate[c.Index()]; ok {
		delete(l.sites, prev)
	}
	l.sites[coord] = c
	l.locate[c.Index()] = coord
	return nil
}

// Vacate removes c from the lattice entirely.
func (l *Single) Vacate(c ComponentRef) {
	if coord, ok := l.locate[c.Index()]; ok {
		delete(l.sites, coord)
		delete(l.locate, c.Index())
	}
}

// Locate returns the coord c currently occupies and true, or the zero
// Coord and false if c is not on the lattice.
func (l *Single) Locate(c ComponentRef) (Coord, bool) {
	coord, ok := l.locate[c.Index()]
	return coord, ok
}

// Occupants returns the (at most one) occupant of coord.
func (l *Single) Occupants(coord Coord) []ComponentRef {
	coord = Coord{wrap(coord.X, l.side), wrap(coord.Y, l.side), wrap(coord.Z, l.side)}
	if c, ok := l.sites[coord]; ok {
		return []ComponentRef{c}
	}
	return nil
}

func (l *Single) IsEmpty(coord Coord) bool {
	coord = Coord{wrap(coord.X, l.side), wrap(coord.Y, l.side), wrap(coord.Z, l.side)}
	_, ok := l.sites[coord]
	return !ok
}

func (l *Single) CountOccupants(coord Coord) int {
	if l.IsEmpty(coord) {
		return 0
	}
	return 1
}

func (l *Single) RandomNeighbor(s *rng.Source, coord Coord) Coord {
	return RandomMooreNeighbor(s, coord, l.side)
}

func (l *Single) Neighbors(coord Coord) []Coord {
	return Moore(coord, l.side)
}

// Multi is a multi-occupancy lattice: each site holds a set of
// components, keyed by index, for deployments where many Lineages may
// share a site (subject to CapacityModel, enforced by the scheduler,
// not the lattice itself).
type Multi struct {
	side   int
	sites  map[Coord]map[int64]ComponentRef
	locate map[int64]Coord
}

// NewMulti creates an empty multi-occupancy lattice of side P.
func NewMulti(side int) *Multi {
	return &Multi{side: side, sites: make(map[Coord]map[int64]ComponentRef), locate: make(map[int64]Coord)}
}

func (l *Multi) Side() int { return l.side }

// Occupy adds c to coord's occupant set, removing it from its previous
// site if any.
func (l *Multi) Occupy(c ComponentRef, coord Coord) error {
	coord = Coord{wrap(coord.X, l.side), wrap(coord.Y, l.side), wrap(coord.Z, l.side)}
	if prev, ok := l.locate[c.Index()]; ok {
		if bucket, ok := l.sites[prev]; ok {
			delete(bucket, c.Index())
			if len(bucket) == 0 {
				delete(l.sites, prev)
			}
		}
	}
	bucket, ok := l.sites[coord]
	if !ok {
		bucket = make(map[int64]ComponentRef)
		l.sites[coord] = bucket
	}
	bucket[c.Index()] = c
	l.locate[c.Index()] = coord
	return nil
}

func (l *Multi) Vacate(c ComponentRef) {
	if coord, ok := l.locate[c.Index()]; ok {
		if bucket, ok := l.sites[coord]; ok {
			delete(bucket, c.Index())
			if len(bucket) == 0 {
				delete(l.sites, coord)
			}
		}
		delete(l.locate, c.Index())
	}
}

func (l *Multi) Locate(c ComponentRef) (Coord, bool) {
	coord, ok := l.locate[c.Index()]
	return coord, ok
}

func (l *Multi) Occupants(coord Coord) []ComponentRef {
	coord = Coord{wrap(coord.X, l.side), wrap(coord.Y, l.side), wrap(coord.Z, l.side)}
	bucket, ok := l.sites[coord]
	if !ok {
		return nil
	}
	out := make([]ComponentRef, 0, len(bucket))
	for _, c := range bucket {
		out = append(out, c)
	}
	return out
}

func (l *Multi) IsEmpty(coord Coord) bool {
	return l.CountOccupants(coord) == 0
}

func (l *Multi) CountOccupants(coord Coord) int {
	coord = Coord{wrap(coord.X, l.side), wrap(coord.Y, l.side), wrap(coord.Z, l.side)}
	return len(l.sites[coord])
}

func (l *Multi) RandomNeighbor(s *rng.Source, coord Coord) Coord {
	return RandomMooreNeighbor(s, coord, l.side)
}

func (l *Multi) Neighbors(coord Coord) []Coord {
	return Moore(coord, l.side)
}
