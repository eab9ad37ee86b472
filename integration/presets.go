// Package integration runs a whole DPoS network in one process: N miners
// share one engine and one store, and a fake clock moves from one scheduled
// block to the next. Presets bundle the network size and rules into named
// profiles (single, small, side) so tests and the simulate command can spin
// up a network without assembling rules by hand.
//
// Usage:
//
//	cfg := integration.SingleNodePreset() // one miner, rounds only
//	cfg := integration.SmallNetPreset()   // five miners, short terms
//	cfg := integration.SideChainPreset()  // five miners, terms never change
//
// Each preset returns a PresetConfig which NewNetwork turns into a running
// network.
package integration

import (
	"fmt"
	"time"

	"github.com/rony4d/go-dpos/dpos"
	"github.com/rony4d/go-dpos/dpos/genesis"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/store"
)

// PresetConfig captures what varies across simulated networks.
type PresetConfig struct {
	Name      string          // human-readable identifier (e.g., "single", "small")
	Miners    int             // number of genesis miners
	Rules     dpos.Rules      // network rules shared by every miner
	StartTime inter.Timestamp // chain start, round 1 is scheduled from it
	Store     store.StoreConfig

	// PollInterval is how often a miner told to do nothing asks again.
	PollInterval inter.Timestamp
	// MaxIdlePolls bounds the polls between two blocks before the network is
	// considered stalled.
	MaxIdlePolls int
}

func DefaultPreset() PresetConfig {
	rules := dpos.FakeNetRules()
	return PresetConfig{
		Name:         "default",
		Miners:       3,
		Rules:        rules,
		StartTime:    genesis.FakeGenesisTime,
		Store:        store.LiteStoreConfig(),
		PollInterval: rules.Mining.Interval / 4,
		MaxIdlePolls: 1000,
	}
}

// SingleNodePreset returns a network of one miner. It never changes terms,
// whatever the term period is.
func SingleNodePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "single"
	cfg.Miners = 1
	return cfg
}

// SmallNetPreset returns a five miner main chain whose terms last two
// minutes, so that a term changes every few rounds.
func SmallNetPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "small"
	cfg.Miners = 5
	cfg.Rules.Terms.Period = inter.Timestamp(2 * time.Minute)
	return cfg
}

// SideChainPreset returns a five miner side chain. Side chains rotate
// rounds only.
func SideChainPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "side"
	cfg.Miners = 5
	cfg.Rules = dpos.SideChainRules()
	cfg.Rules.History.KeepRounds = 64
	return cfg
}

// GetPresetByName looks up a preset by its string identifier. This helper
// backs the --network flag of the simulate command.
//
// Example:
//
//	preset, err := integration.GetPresetByName("small")
//	if err != nil {
//	    log.Fatal(err)
//	}
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "single":
		return SingleNodePreset(), nil
	case "small":
		return SmallNetPreset(), nil
	case "side":
		return SideChainPreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: single, small, side, default)", name)
	}
}

// ApplyPreset merges a preset into an existing config. Zero fields of the
// preset leave the target untouched, so a preset can be applied on top of
// CLI or config-file overrides.
//
// Example:
//
//	cfg := integration.DefaultPreset()
//	integration.ApplyPreset(&cfg, integration.SmallNetPreset())
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.Miners > 0 {
		target.Miners = preset.Miners
	}
	if preset.Rules.Name != "" {
		target.Rules = preset.Rules.Copy()
	}
	if preset.StartTime != 0 {
		target.StartTime = preset.StartTime
	}
	if preset.Store.RoundsCacheSize > 0 {
		target.Store = preset.Store
	}
	if preset.PollInterval > 0 {
		target.PollInterval = preset.PollInterval
	}
	if preset.MaxIdlePolls > 0 {
		target.MaxIdlePolls = preset.MaxIdlePolls
	}
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
