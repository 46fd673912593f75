// Copyright 2023 Fortio Authors
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

// Intermediate adapter between dflag and the core's runtime tunables.
// Allows skillcurve/cleaner to set config default values without forcing
// dflag's flag registration on every caller.
package config

import (
	"fortio.org/dflag"
	"splitcore.dev/splitcore/cleaner"
	"splitcore.dev/splitcore/skillcurve"
)

type Config[t any] interface {
	Set(rawInput string) error
	Get() t
	Usage() string
}

type DefaultValue[t dflag.DynValueTypes] struct {
	value t
	usage string
}

func (d *DefaultValue[t]) Get() t {
	return d.value
}

func (d *DefaultValue[t]) Set(inp string) error {
	v, err := dflag.Parse[t](inp)
	if err != nil {
		return err
	}
	d.value = v
	return nil
}

func (d *DefaultValue[t]) Usage() string {
	return d.usage
}

func New[t dflag.DynValueTypes](v t, info string) Config[t] {
	return &DefaultValue[t]{value: v, usage: info}
}

// Tunables bundles every runtime-adjustable knob the engine exposes,
// wired to the package-level vars skillcurve/cleaner read directly.
type Tunables struct {
	DecayWeight Config[float64]
	BalancedPBIterationBudget Config[int]
	CleanerIterationBudget Config[int]
	HistogramResolution Config[int]
}

// NewTunables returns a Tunables seeded from the packages' current
// defaults, so registering flags never silently changes behavior.
func NewTunables() *Tunables {
	return &Tunables{
		DecayWeight: New(skillcurve.DecayWeight, "skill curve exponential recency decay weight"),
		BalancedPBIterationBudget: New(skillcurve.BalancedPBIterationBudget, "Balanced PB binary search iteration budget"),
		CleanerIterationBudget: New(cleaner.IterationBudget, "sum-of-best cleaner scan iteration budget"),
		HistogramResolution: New(skillcurve.HistogramResolution, "skill curve distribution histogram bucket count"),
	}
}

// Apply pushes the current values of t back into the skillcurve/cleaner
// package-level vars, e.g. after a flag or TOML reload.
func (t *Tunables) Apply() {
	skillcurve.DecayWeight = t.DecayWeight.Get()
	skillcurve.BalancedPBIterationBudget = t.BalancedPBIterationBudget.Get()
	cleaner.IterationBudget = t.CleanerIterationBudget.Get()
	skillcurve.HistogramResolution = t.HistogramResolution.Get()
}
