package growth

import (
	"testing"

	"tumorsim/internal/rng"
)

func TestNewRejectsOverBudget(t *testing.T) {
	if _, err := New(0.7, 0.5); err == nil {
		t.Fatal("expected error for b+d > 1")
	}
}

func TestDerivedConstructors(t *testing.T) {
	r, err := Net(0.1)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.NetRate(); got < 0.099 || got > 0.101 {
		t.Fatalf("net rate mismatch: %v", got)
	}
}

func TestSampledNeverExceedsCap(t *testing.T) {
	s := rng.New(3)
	r := MustNew(0.9, 0.0)
	for trial := 0; trial < 200; trial++ {
		c := r.Sampled(s, 1000, 50)
		if c.NetGrowth() > 50 {
			t.Fatalf("sampled net growth %d exceeds cap 50", c.NetGrowth())
		}
		if c.Births < 0 || c.Deaths < 0 {
			t.Fatalf("negative counts: %+v", c)
		}
	}
}

func TestComputedNeverExceedsCap(t *testing.T) {
	s := rng.New(4)
	r := MustNew(0.9, 0.0)
	for trial := 0; trial < 200; trial++ {
		c := r.Computed(s, 100000, 50)
		if c.NetGrowth() > 50 {
			t.Fatalf("computed net growth %d exceeds cap 50", c.NetGrowth())
		}
	}
}

func TestResolvedDispatch(t *testing.T) {
	s := rng.New(5)
	r := MustNew(0.5, 0.1)
	small := r.Resolved(s, 5, 1000, 10)
	_ = small
	large := r.Resolved(s, 1000, 1000, 10)
	_ = large
}
