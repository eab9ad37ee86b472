// Package dpos defines the consensus rules of a DPoS network: the mining
// schedule of a round, the length of a term and how much round history is
// kept. Rules are consensus-critical, every node of a network must run with
// identical values.
package dpos

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rony4d/go-dpos/inter"
)

// Network identification constants
const (
	MainNetworkID uint64 = 0xd9
	TestNetworkID uint64 = 0xd9a
	SideNetworkID uint64 = 0xd9b
	FakeNetworkID uint64 = 0xd9f

	// DefaultKeepRounds is how many rounds stay in the store before pruning.
	DefaultKeepRounds uint64 = 40960
)

// ChainProfile selects the term-boundary policy.
type ChainProfile uint8

const (
	// MainChain re-elects miners when a term period elapses.
	MainChain ChainProfile = iota
	// SideChain never changes terms on its own.
	SideChain
)

func (p ChainProfile) String() string {
	switch p {
	case MainChain:
		return "main"
	case SideChain:
		return "side"
	}
	return "unknown"
}

var (
	ErrNonPositiveInterval  = errors.New("mining interval must be positive")
	ErrNonPositiveTinyCount = errors.New("max tiny blocks per slot must be positive")
	ErrNonPositivePeriod    = errors.New("term period must be positive")
	ErrTinyIntervalTooLarge = errors.New("tiny block minimum interval exceeds tiny block slot")
	ErrHistoryTooShort      = errors.New("history must keep the previous round")
)

// Rules describes the complete consensus configuration of a network.
type Rules struct {
	Name      string
	NetworkID uint64
	Chain     ChainProfile

	Mining  MiningRules
	Terms   TermRules
	History HistoryRules
}

// MiningRules define a miner's time slot.
type MiningRules struct {
	// Interval is the length of one time slot.
	Interval inter.Timestamp
	// MaxTinyBlocks is how many blocks a miner may produce in its slot,
	// the first (UpdateValue) one included.
	MaxTinyBlocks int
	// TinyBlockMinimumInterval is the pause between two tiny blocks.
	TinyBlockMinimumInterval inter.Timestamp
}

// TermRules define when miners are re-elected.
type TermRules struct {
	// Period is the length of a term, counted from the chain start.
	Period inter.Timestamp
}

type HistoryRules struct {
	KeepRounds uint64
}

// TinyBlockSlot is the share of a time slot given to one tiny block.
func (m MiningRules) TinyBlockSlot() inter.Timestamp {
	if m.MaxTinyBlocks <= 0 {
		return 0
	}
	return m.Interval / inter.Timestamp(m.MaxTinyBlocks)
}

// DefaultBlockMiningLimit is how long producing an ordinary block may take.
func (m MiningRules) DefaultBlockMiningLimit() inter.Timestamp {
	return m.TinyBlockSlot() * 3 / 5
}

// LastTinyBlockMiningLimit leaves time for the block to propagate before the
// slot ends.
func (m MiningRules) LastTinyBlockMiningLimit() inter.Timestamp {
	return m.TinyBlockSlot() / 2
}

// LastBlockOfCurrentTermMiningLimit is longer since the NextTerm block carries
// the whole new miner list.
func (m MiningRules) LastBlockOfCurrentTermMiningLimit() inter.Timestamp {
	return m.Interval * 3 / 5
}

// Validate returns a configuration error. Such rules are fatal at the point
// of use.
func (r Rules) Validate() error {
	if r.Mining.Interval == 0 {
		return ErrNonPositiveInterval
	}
	if r.Mining.MaxTinyBlocks <= 0 {
		return ErrNonPositiveTinyCount
	}
	if r.Chain == MainChain && r.Terms.Period == 0 {
		return ErrNonPositivePeriod
	}
	if r.Mining.TinyBlockMinimumInterval > r.Mining.TinyBlockSlot() {
		return ErrTinyIntervalTooLarge
	}
	if r.History.KeepRounds == 1 {
		return ErrHistoryTooShort
	}
	return nil
}

func MainNetRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Chain:     MainChain,
		Mining:    DefaultMiningRules(),
		Terms:     TermRules{Period: inter.Timestamp(7 * 24 * time.Hour)},
		History:   HistoryRules{KeepRounds: DefaultKeepRounds},
	}
}

func TestNetRules() Rules {
	return Rules{
		Name:      "test",
		NetworkID: TestNetworkID,
		Chain:     MainChain,
		Mining:    DefaultMiningRules(),
		Terms:     TermRules{Period: inter.Timestamp(24 * time.Hour)},
		History:   HistoryRules{KeepRounds: DefaultKeepRounds},
	}
}

// SideChainRules keep the miner list of the parent chain, terms never
// advance on their own.
func SideChainRules() Rules {
	return Rules{
		Name:      "side",
		NetworkID: SideNetworkID,
		Chain:     SideChain,
		Mining:    DefaultMiningRules(),
		History:   HistoryRules{KeepRounds: DefaultKeepRounds},
	}
}

// FakeNetRules use short terms and little history, for tests and simulation.
func FakeNetRules() Rules {
	return Rules{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		Chain:     MainChain,
		Mining:    DefaultMiningRules(),
		Terms:     TermRules{Period: inter.Timestamp(time.Hour)},
		History:   HistoryRules{KeepRounds: 64},
	}
}

func DefaultMiningRules() MiningRules {
	return MiningRules{
		Interval:                 inter.Timestamp(4 * time.Second),
		MaxTinyBlocks:            8,
		TinyBlockMinimumInterval: inter.Timestamp(50 * time.Millisecond),
	}
}

// RulesByName returns the preset rules of a named network.
func RulesByName(name string) (Rules, error) {
	switch name {
	case "main":
		return MainNetRules(), nil
	case "test":
		return TestNetRules(), nil
	case "side":
		return SideChainRules(), nil
	case "fake":
		return FakeNetRules(), nil
	}
	return Rules{}, fmt.Errorf("unknown network %q", name)
}

// Copy constructs a deep copy. Rules hold no references today, the method
// exists so callers never share a Rules value by accident.
func (r Rules) Copy() Rules {
	return r
}

func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
