// Copyright 2017 Fortio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persist

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"splitcore.dev/splitcore/cleaner"
	"splitcore.dev/splitcore/skillcurve"
)

// Settings is the TOML sidecar form of the engine's runtime tunables, a
// companion to the native XML save that a host application can check into
// version control. Grounded on stojg-playlist-sorter's GAConfig: a flat
// struct with toml tags, loaded with a defaults fallback.
type Settings struct {
	DecayWeight float64 `toml:"decay_weight"`
	BalancedPBIterationBudget int `toml:"balanced_pb_iteration_budget"`
	CleanerIterationBudget int `toml:"cleaner_iteration_budget"`
	HistogramResolution int `toml:"histogram_resolution"`
	Percentiles []float64 `toml:"percentiles"`
}

// DefaultSettings returns a Settings seeded from the packages' current
// defaults, so a fresh sidecar round-trips without silently changing
// behavior.
func DefaultSettings() Settings {
	return Settings{
		DecayWeight: skillcurve.DecayWeight,
		BalancedPBIterationBudget: skillcurve.BalancedPBIterationBudget,
		CleanerIterationBudget: cleaner.IterationBudget,
		HistogramResolution: skillcurve.HistogramResolution,
		Percentiles: append([]float64(nil), skillcurve.Percentiles...),
	}
}

// LoadSettings reads path as TOML, returning DefaultSettings unchanged if
// the file doesn't exist.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), fmt.Errorf("persist: reading settings %q: %w", path, err)
	}
	settings := DefaultSettings()
	if err := toml.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("persist: parsing settings %q: %w", path, err)
	}
	return settings, nil
}

// SaveSettings writes settings to path as TOML, creating its parent
// directory if needed.
func SaveSettings(path string, settings Settings) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("persist: creating settings directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: creating settings file %q: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(settings); err != nil {
		return fmt.Errorf("persist: writing settings %q: %w", path, err)
	}
	return nil
}

// Apply pushes settings into the skillcurve/cleaner package-level vars.
func (settings Settings) Apply() {
	skillcurve.DecayWeight = settings.DecayWeight
	skillcurve.BalancedPBIterationBudget = settings.BalancedPBIterationBudget
	cleaner.IterationBudget = settings.CleanerIterationBudget
	skillcurve.HistogramResolution = settings.HistogramResolution
	if len(settings.Percentiles) > 0 {
		skillcurve.Percentiles = append([]float64(nil), settings.Percentiles...)
	}
}
