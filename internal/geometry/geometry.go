// Package geometry computes the spatial moments of an occupied-site
// cloud (center of mass, gyration tensor, principal moments, radius of
// gyration, shape descriptors) and locates surface sites by walking
// outward from the center of mass along a sampled direction.
//
// Grounded on the teacher's engines/vedic.go Point3D vector helpers
// and golden-spiral point distribution (adapted here to Marsaglia
// sampling, since the spec names Marsaglia specifically for
// selectSurfaceSite), generalized from particle-cloud rendering math
// to lattice-site occupancy moments.
package geometry

import (
	"math"
	"sort"

	"tumorsim/internal/lattice"
	"tumorsim/internal/rng"
)

// Vector3 is a plain 3D real vector, used for moments computed over
// potentially fractional centers of mass (lattice sites are integers,
// their weighted centroid generally is not).
type Vector3 struct {
	X, Y, Z float64
}

// WeightedSite is one occupied lattice site and the total cell count
// at it, the input unit for every moment computation in this package.
type WeightedSite struct {
	Coord lattice.Coord
	Cells int
}

// Moments bundles every quantity derived from one weighted-site cloud.
type Moments struct {
	CenterOfMass Vector3
	// PrincipalMoments are the eigenvalues of the gyration tensor,
	// ascending: PrincipalMoments[0] <= [1] <= [2].
	PrincipalMoments [3]float64
	RG               float64
	Asphericity      float64
	Acylindricity    float64
	Anisotropy       float64
}

// Compute derives the full Moments from a weighted-site cloud. Returns
// the zero value if sites is empty.
func Compute(sites []WeightedSite) Moments {
	if len(sites) == 0 {
		return Moments{}
	}
	cm, totalCells := centerOfMass(sites)
	gyration := gyrationTensor(sites, cm, totalCells)
	pm := principalMoments(gyration)
	sort.Float64s(pm[:])

	rg := math.Sqrt(pm[0] + pm[1] + pm[2])
	mean := (pm[0] + pm[1] + pm[2]) / 3
	asphericity := pm[2] - 0.5*(pm[0]+pm[1])
	acylindricity := pm[1] - pm[0]
	anisotropy := 0.0
	if mean > 0 {
		anisotropy = 1.5 * (sq(pm[0]-mean) + sq(pm[1]-mean) + sq(pm[2]-mean)) / sq(pm[0]+pm[1]+pm[2])
	}

	return Moments{
		CenterOfMass:     cm,
		PrincipalMoments: pm,
		RG:               rg,
		Asphericity:      asphericity,
		Acylindricity:    acylindricity,
		Anisotropy:       anisotropy,
	}
}

func sq(x float64) float64 { return x * x }

func centerOfMass(sites []WeightedSite) (Vector3, float64) {
	var sx, sy, sz, total float64
	for _, s := range sites {
		w := float64(s.Cells)
		sx += w * float64(s.Coord.X)
		sy += w * float64(s.Coord.Y)
		sz += w * float64(s.Coord.Z)
		total += w
	}
	if total == 0 {
		return Vector3{}, 0
	}
	return Vector3{X: sx / total, Y: sy / total, Z: sz / total}, total
}

// gyrationTensor returns the symmetric 3x3 cell-count-weighted
// gyration tensor as its six distinct entries [xx, yy, zz, xy, xz, yz].
func gyrationTensor(sites []WeightedSite, cm Vector3, totalCells float64) [6]float64 {
	var xx, yy, zz, xy, xz, yz float64
	if totalCells == 0 {
		return [6]float64{}
	}
	for _, s := range sites {
		w := float64(s.Cells)
		dx := float64(s.Coord.X) - cm.X
		dy := float64(s.Coord.Y) - cm.Y
		dz := float64(s.Coord.Z) - cm.Z
		xx += w * dx * dx
		yy += w * dy * dy
		zz += w * dz * dz
		xy += w * dx * dy
		xz += w * dx * dz
		yz += w * dy * dz
	}
	return [6]float64{xx / totalCells, yy / totalCells, zz / totalCells, xy / totalCells, xz / totalCells, yz / totalCells}
}

// principalMoments computes the eigenvalues of the symmetric 3x3
// gyration tensor via the closed-form trigonometric solution (valid
// for any real symmetric 3x3 matrix), avoiding a general iterative
// eigensolver dependency for a fixed 3x3 problem.
func principalMoments(t [6]float64) [3]float64 {
	xx, yy, zz, xy, xz, yz := t[0], t[1], t[2], t[3], t[4], t[5]
	p1 := xy*xy + xz*xz + yz*yz
	trace := xx + yy + zz
	if p1 == 0 {
		// Already diagonal.
		return [3]float64{xx, yy, zz}
	}
	q := trace / 3
	p2 := sq(xx-q) + sq(yy-q) + sq(zz-q) + 2*p1
	p := math.Sqrt(p2 / 6)
	if p == 0 {
		return [3]float64{q, q, q}
	}
	// B = (1/p) * (A - q*I)
	bxx, byy, bzz := (xx-q)/p, (yy-q)/p, (zz-q)/p
	bxy, bxz, byz := xy/p, xz/p, yz/p
	detB := bxx*(byy*bzz-byz*byz) - bxy*(bxy*bzz-byz*bxz) + bxz*(bxy*byz-byy*bxz)
	r := detB / 2
	if r < -1 {
		r = -1
	}
	if r > 1 {
		r = 1
	}
	phi := math.Acos(r) / 3
	eig1 := q + 2*p*math.Cos(phi)
	eig3 := q + 2*p*math.Cos(phi+2*math.Pi/3)
	eig2 := trace - eig1 - eig3
	return [3]float64{eig1, eig2, eig3}
}

// SurfaceSite walks outward from center along unit direction v in
// step-sized increments, returning the first coordinate whose
// Moore-neighborhood within emptyShellDistance sites contains no
// occupied site, per spec.md's surfaceSite definition. occupied
// reports whether a coordinate currently holds any component.
func SurfaceSite(center Vector3, v Vector3, side int, emptyShellDistance int, occupied func(lattice.Coord) bool) lattice.Coord {
	if emptyShellDistance < 1 {
		emptyShellDistance = 3
	}
	norm := math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	if norm == 0 {
		norm = 1
	}
	dx, dy, dz := v.X/norm, v.Y/norm, v.Z/norm

	maxRadius := side / 2
	if maxRadius < 1 {
		maxRadius = 1
	}
	var last lattice.Coord
	for r := 0; r <= maxRadius; r++ {
		coord := lattice.Coord{
			X: int(math.Round(center.X + dx*float64(r))),
			Y: int(math.Round(center.Y + dy*float64(r))),
			Z: int(math.Round(center.Z + dz*float64(r))),
		}
		last = coord
		if !hasOccupiedWithin(coord, side, emptyShellDistance, occupied) {
			return coord
		}
	}
	return last
}

// hasOccupiedWithin reports whether any site within dist Chebyshev
// steps of coord (excluding coord itself) is occupied.
func hasOccupiedWithin(coord lattice.Coord, side int, dist int, occupied func(lattice.Coord) bool) bool {
	for dx := -dist; dx <= dist; dx++ {
		for dy := -dist; dy <= dist; dy++ {
			for dz := -dist; dz <= dist; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				c := lattice.Coord{
					X: mod(coord.X+dx, side),
					Y: mod(coord.Y+dy, side),
					Z: mod(coord.Z+dz, side),
				}
				if occupied(c) {
					return true
				}
			}
		}
	}
	return false
}

func mod(v, side int) int {
	if side <= 0 {
		return v
	}
	m := v % side
	if m < 0 {
		m += side
	}
	return m
}

// SelectSurfaceSite samples a uniformly random direction on the unit
// sphere via Marsaglia's method and calls SurfaceSite along it.
func SelectSurfaceSite(s *rng.Source, center Vector3, side int, emptyShellDistance int, occupied func(lattice.Coord) bool) lattice.Coord {
	x, y, z := s.MarsagliaUnitVector()
	return SurfaceSite(center, Vector3{X: x, Y: y, Z: z}, side, emptyShellDistance, occupied)
}
