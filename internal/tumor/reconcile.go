package tumor

import (
	"tumorsim/internal/component"
	"tumorsim/internal/genotype"
	"tumorsim/internal/lattice"
	"tumorsim/internal/rng"
)

// expansionFreeCapacity is kind-specific per spec.md §4.9c: 0 if the
// expansion site is full; for single-occupancy grids it is the full
// site capacity if empty, 0 otherwise (an occupied single-occupancy
// site can take no more); for multi-occupancy it is the remaining
// headroom K(e) - cellsAt(e).
func (t *Tumor) expansionFreeCapacity(eCoord lattice.Coord) int {
	if _, ok := t.grid.(*lattice.Single); ok {
		if t.grid.IsEmpty(eCoord) {
			return t.capacityAt(eCoord)
		}
		return 0
	}
	free := t.capacityAt(eCoord) - t.cellsAt(eCoord)
	if free < 0 {
		return 0
	}
	return free
}

// reconcile dispatches to the per-kind reconciliation rule after c has
// already been advanced this step, placing any offspring and keeping
// every touched site within capacity once it returns (a transient
// over-capacity is allowed only while reconcile itself runs).
func (t *Tumor) reconcile(s *rng.Source, c component.Component, pCoord, eCoord lattice.Coord, offspring []component.Component) error {
	switch v := c.(type) {
	case *component.Cell:
		return t.reconcileCell(v, pCoord, eCoord, offspring)
	case *component.Lineage:
		return t.reconcileLineage(v, pCoord, eCoord, offspring)
	case *component.Deme:
		if len(offspring) != 0 {
			panic("tumor: Deme.Advance produced offspring, violating the no-offspring invariant")
		}
		return t.reconcileDeme(s, v, pCoord, eCoord)
	default:
		return nil
	}
}

func (t *Tumor) reconcileCell(c *component.Cell, pCoord, eCoord lattice.Coord, offspring []component.Component) error {
	if c.IsDead() {
		t.RemoveComponent(c)
	} else {
		t.syncCellCount(c, pCoord)
	}
	for _, daughter := range offspring {
		target := eCoord
		if t.grid.IsEmpty(pCoord) {
			target = pCoord
		} else if _, single := t.grid.(*lattice.Single); !single && t.cellsAt(pCoord) < t.capacityAt(pCoord) {
			target = pCoord
		}
		if err := t.AddOffspring(daughter, target, c.Index()); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tumor) reconcileLineage(l *component.Lineage, pCoord, eCoord lattice.Coord, offspring []component.Component) error {
	t.syncCellCount(l, pCoord)
	if l.CellCount() == 0 {
		t.RemoveComponent(l)
	} else if excess := t.cellsAt(pCoord) - t.capacityAt(pCoord); excess > 0 {
		if err := t.relieveLineageOvercapacity(l, pCoord, eCoord, excess); err != nil {
			return err
		}
	}
	for _, daughter := range offspring {
		target := eCoord
		if t.cellsAt(pCoord) < t.capacityAt(pCoord) {
			target = pCoord
		}
		if err := t.AddOffspring(daughter, target, l.Index()); err != nil {
			return err
		}
	}
	return nil
}

// relieveLineageOvercapacity moves excess cells off pCoord by either
// merging into an existing same-genotype Lineage at eCoord (option A)
// or splitting off a daughter clone placed at eCoord (option B).
func (t *Tumor) relieveLineageOvercapacity(l *component.Lineage, pCoord, eCoord lattice.Coord, excess int) error {
	if excess > l.CellCount() {
		excess = l.CellCount()
	}
	if target := t.findSameGenotypeLineage(eCoord, l.Genotype()); target != nil {
		l.AdjustCellCount(-excess)
		target.AdjustCellCount(excess)
		t.syncCellCount(l, pCoord)
		t.syncCellCount(target, eCoord)
		return nil
	}
	l.AdjustCellCount(-excess)
	t.syncCellCount(l, pCoord)
	clone := component.NewLineage(excess, l.Genotype())
	return t.AddOffspring(clone, eCoord, l.Index())
}

// findSameGenotypeLineage looks for a live Lineage at coord sharing
// genotype geno, used to implement reconciliation option A (merge
// excess cells into an existing same-genotype Lineage rather than
// splitting a new one off).
func (t *Tumor) findSameGenotypeLineage(coord lattice.Coord, geno genotype.ID) *component.Lineage {
	for _, ref := range t.grid.Occupants(coord) {
		c, ok := t.live[ref.Index()]
		if !ok {
			continue
		}
		if lin, ok := c.(*component.Lineage); ok && lin.Genotype() == geno {
			return lin
		}
	}
	return nil
}

func (t *Tumor) reconcileDeme(s *rng.Source, d *component.Deme, pCoord, eCoord lattice.Coord) error {
	t.syncCellCount(d, pCoord)
	if d.CellCount() == 0 {
		t.RemoveComponent(d)
		return nil
	}
	excess := d.CellCount() - t.capacityAt(pCoord)
	if excess <= 0 {
		return nil
	}
	min := excess
	max := t.expansionFreeCapacity(eCoord)
	if budget := d.CellCount() - 1; max > budget {
		max = budget
	}
	if max < min {
		max = min
	}

	clone := d.Split(s, 0.5)
	cloneCount := clone.CellCount()
	if cloneCount < min {
		d.MoveCellsTo(s, clone, min-cloneCount)
	} else if cloneCount > max {
		clone.MoveCellsTo(s, d, cloneCount-max)
	}

	t.syncCellCount(d, pCoord)
	return t.AddOffspring(clone, eCoord, d.Index())
}
