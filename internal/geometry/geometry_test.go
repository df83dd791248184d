package geometry

import (
	"math"
	"testing"

	"tumorsim/internal/lattice"
	"tumorsim/internal/rng"
)

func TestComputeSingleSiteIsDegenerate(t *testing.T) {
	m := Compute([]WeightedSite{{Coord: lattice.Coord{X: 5, Y: 5, Z: 5}, Cells: 10}})
	if m.CenterOfMass != (Vector3{X: 5, Y: 5, Z: 5}) {
		t.Fatalf("expected CM at the single site, got %v", m.CenterOfMass)
	}
	if m.RG != 0 {
		t.Fatalf("expected RG 0 for a single occupied site, got %v", m.RG)
	}
}

func TestComputeSphericalCloudLowAsphericity(t *testing.T) {
	var sites []WeightedSite
	for dx := -3; dx <= 3; dx++ {
		for dy := -3; dy <= 3; dy++ {
			for dz := -3; dz <= 3; dz++ {
				if dx*dx+dy*dy+dz*dz <= 9 {
					sites = append(sites, WeightedSite{Coord: lattice.Coord{X: 50 + dx, Y: 50 + dy, Z: 50 + dz}, Cells: 1})
				}
			}
		}
	}
	m := Compute(sites)
	if math.Abs(m.Asphericity) > 1.0 {
		t.Fatalf("expected near-zero asphericity for a spherical cloud, got %v", m.Asphericity)
	}
	if m.RG <= 0 {
		t.Fatal("expected positive radius of gyration for an extended cloud")
	}
}

func TestPrincipalMomentsAscending(t *testing.T) {
	sites := []WeightedSite{
		{Coord: lattice.Coord{X: 0, Y: 0, Z: 0}, Cells: 1},
		{Coord: lattice.Coord{X: 10, Y: 0, Z: 0}, Cells: 1},
		{Coord: lattice.Coord{X: 20, Y: 0, Z: 0}, Cells: 1},
	}
	m := Compute(sites)
	if m.PrincipalMoments[0] > m.PrincipalMoments[1] || m.PrincipalMoments[1] > m.PrincipalMoments[2] {
		t.Fatalf("expected ascending principal moments, got %v", m.PrincipalMoments)
	}
}

func TestSurfaceSiteFindsEdgeOfOccupiedBlock(t *testing.T) {
	occupied := func(c lattice.Coord) bool {
		return c.X >= 40 && c.X <= 60 && c.Y >= 40 && c.Y <= 60 && c.Z >= 40 && c.Z <= 60
	}
	center := Vector3{X: 50, Y: 50, Z: 50}
	got := SurfaceSite(center, Vector3{X: 1, Y: 0, Z: 0}, 100, 3, occupied)
	if got.X <= 50 {
		t.Fatalf("expected surface site beyond center along +X, got %v", got)
	}
}

func TestSelectSurfaceSiteDeterministicBySeed(t *testing.T) {
	occupied := func(c lattice.Coord) bool { return c.X >= 40 && c.X <= 60 }
	center := Vector3{X: 50, Y: 50, Z: 50}
	a := SelectSurfaceSite(rng.New(1), center, 100, 3, occupied)
	b := SelectSurfaceSite(rng.New(1), center, 100, 3, occupied)
	if a != b {
		t.Fatalf("expected deterministic result from same seed, got %v vs %v", a, b)
	}
}
