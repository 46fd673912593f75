package config

import (
	"testing"

	"splitcore.dev/splitcore/cleaner"
	"splitcore.dev/splitcore/skillcurve"
)

func TestNewTunablesSeedsFromCurrentDefaults(t *testing.T) {
	want := skillcurve.DecayWeight
	tu := NewTunables()
	if tu.DecayWeight.Get() != want {
		t.Errorf("DecayWeight = %v, want seeded default %v", tu.DecayWeight.Get(), want)
	}
}

func TestSetAndApplyUpdatesPackageVars(t *testing.T) {
	orig := skillcurve.DecayWeight
	defer func() { skillcurve.DecayWeight = orig }()

	tu := NewTunables()
	if err := tu.DecayWeight.Set("0.5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tu.Apply()
	if skillcurve.DecayWeight != 0.5 {
		t.Errorf("skillcurve.DecayWeight = %v, want 0.5", skillcurve.DecayWeight)
	}
}

func TestCleanerIterationBudgetRoundTrips(t *testing.T) {
	orig := cleaner.IterationBudget
	defer func() { cleaner.IterationBudget = orig }()

	tu := NewTunables()
	if err := tu.CleanerIterationBudget.Set("500"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tu.Apply()
	if cleaner.IterationBudget != 500 {
		t.Errorf("cleaner.IterationBudget = %v, want 500", cleaner.IterationBudget)
	}
}

func TestHistogramResolutionRoundTrips(t *testing.T) {
	orig := skillcurve.HistogramResolution
	defer func() { skillcurve.HistogramResolution = orig }()

	tu := NewTunables()
	if err := tu.HistogramResolution.Set("40"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tu.Apply()
	if skillcurve.HistogramResolution != 40 {
		t.Errorf("skillcurve.HistogramResolution = %v, want 40", skillcurve.HistogramResolution)
	}
}
