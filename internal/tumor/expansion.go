// expansion.go resolves spec.md §9's first open question: the
// expansion-site selection distribution is left ambiguous between a
// uniform-Moore draw and a weighted "spherical" distribution with
// fixed near/next-nearest-neighbor probabilities. Both are
// implemented here behind the ExpansionSelector function type, chosen
// by tumor.lattice.expansionSelector at construction time (see
// SPEC_FULL.md §3).
package tumor

import (
	"tumorsim/internal/lattice"
	"tumorsim/internal/rng"
)

// ExpansionSelector picks a single expansion coordinate, one of
// pCoord's Moore neighbors, for a component currently advancing at
// pCoord.
type ExpansionSelector func(s *rng.Source, grid lattice.Grid, pCoord lattice.Coord) lattice.Coord

// UniformMooreSelector picks one of the 26 Moore neighbors uniformly
// at random.
func UniformMooreSelector(s *rng.Source, grid lattice.Grid, pCoord lattice.Coord) lattice.Coord {
	return grid.RandomNeighbor(s, pCoord)
}

// faceNeighborProbability is p_nn from spec.md §9's open question.
const faceNeighborProbability = 0.122

// WeightedSphericalSelector assigns the 6 face (nearest) neighbors
// probability p_nn = 0.122 each and the 12 edge (next-nearest)
// neighbors probability (1 - 6*p_nn)/12 each; the 8 corner neighbors
// are never selected, matching the "spherical" shell approximation
// named in the open question (a cubic lattice has no single
// equidistant shell, so the weighting favors the two shells closest to
// a true sphere and excludes the furthest, most anisotropic corners).
func WeightedSphericalSelector(s *rng.Source, grid lattice.Grid, pCoord lattice.Coord) lattice.Coord {
	side := grid.Side()
	faces := make([]lattice.Coord, 0, 6)
	edges := make([]lattice.Coord, 0, 12)
	for _, n := range lattice.Moore(pCoord, side) {
		dx := wrapDelta(n.X-pCoord.X, side)
		dy := wrapDelta(n.Y-pCoord.Y, side)
		dz := wrapDelta(n.Z-pCoord.Z, side)
		nonZero := 0
		if dx != 0 {
			nonZero++
		}
		if dy != 0 {
			nonZero++
		}
		if dz != 0 {
			nonZero++
		}
		switch nonZero {
		case 1:
			faces = append(faces, n)
		case 2:
			edges = append(edges, n)
		}
	}
	edgeProbability := (1 - 6*faceNeighborProbability) / 12

	cdf := make([]float64, 0, 18)
	cum := 0.0
	for range faces {
		cum += faceNeighborProbability
		cdf = append(cdf, cum)
	}
	for range edges {
		cum += edgeProbability
		cdf = append(cdf, cum)
	}
	cdf[len(cdf)-1] = 1.0

	idx := s.SelectCDF(cdf)
	if idx < len(faces) {
		return faces[idx]
	}
	return edges[idx-len(faces)]
}

func wrapDelta(d, side int) int {
	if d > side/2 {
		d -= side
	}
	if d < -side/2 {
		d += side
	}
	return d
}
