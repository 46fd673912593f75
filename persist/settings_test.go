package persist

import (
	"path/filepath"
	"testing"

	"splitcore.dev/splitcore/cleaner"
	"splitcore.dev/splitcore/skillcurve"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	settings, err := LoadSettings(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if settings.DecayWeight != skillcurve.DecayWeight {
		t.Errorf("DecayWeight = %v, want default %v", settings.DecayWeight, skillcurve.DecayWeight)
	}
}

func TestSaveLoadSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	settings := DefaultSettings()
	settings.DecayWeight = 0.42
	settings.HistogramResolution = 30
	settings.Percentiles = []float64{0.1, 0.5, 0.9}

	if err := SaveSettings(path, settings); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if loaded.DecayWeight != 0.42 || loaded.HistogramResolution != 30 {
		t.Errorf("loaded = %+v, want DecayWeight=0.42 HistogramResolution=30", loaded)
	}
	if len(loaded.Percentiles) != 3 || loaded.Percentiles[1] != 0.5 {
		t.Errorf("loaded percentiles = %v, want [0.1 0.5 0.9]", loaded.Percentiles)
	}
}

func TestSettingsApplyUpdatesPackageVars(t *testing.T) {
	origDecay := skillcurve.DecayWeight
	origBudget := cleaner.IterationBudget
	defer func() {
		skillcurve.DecayWeight = origDecay
		cleaner.IterationBudget = origBudget
	}()

	settings := DefaultSettings()
	settings.DecayWeight = 0.6
	settings.CleanerIterationBudget = 777
	settings.Apply()

	if skillcurve.DecayWeight != 0.6 {
		t.Errorf("skillcurve.DecayWeight = %v, want 0.6", skillcurve.DecayWeight)
	}
	if cleaner.IterationBudget != 777 {
		t.Errorf("cleaner.IterationBudget = %v, want 777", cleaner.IterationBudget)
	}
}
