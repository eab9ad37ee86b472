package inter

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// MinerInRound is the schedule and bookkeeping of one miner in one round.
//
// The commit/reveal triple links consecutive rounds: OutValue = H(InValue)
// is published with the miner's first block of round N, and InValue is
// revealed as PreviousInValue with its first block of round N+1.
type MinerInRound struct {
	Pubkey               string
	Order                uint32
	IsExtraBlockProducer bool

	ExpectedMiningTime Timestamp
	ActualMiningTimes  []Timestamp

	ProducedBlocks     uint64
	MissedTimeSlots    uint64
	ProducedTinyBlocks uint64

	InValue         hash.Hash
	PreviousInValue hash.Hash
	OutValue        hash.Hash
	Signature       hash.Hash

	SupposedOrderOfNextRound uint32
	FinalOrderOfNextRound    uint32

	ImpliedIrreversibleBlockHeight idx.Block
}

// Copy constructs a deep copy.
func (m *MinerInRound) Copy() *MinerInRound {
	cp := *m
	if m.ActualMiningTimes != nil {
		cp.ActualMiningTimes = make([]Timestamp, len(m.ActualMiningTimes))
		copy(cp.ActualMiningTimes, m.ActualMiningTimes)
	}
	return &cp
}

// Mined reports whether the miner published its out value this round.
func (m *MinerInRound) Mined() bool {
	return m.SupposedOrderOfNextRound != 0
}

func (m *MinerInRound) HasOutValue() bool {
	return m.OutValue != hash.Hash{}
}

// LatestMiningTime returns the last actual mining time, or false if the miner
// produced nothing this round.
func (m *MinerInRound) LatestMiningTime() (Timestamp, bool) {
	if len(m.ActualMiningTimes) == 0 {
		return 0, false
	}
	return m.ActualMiningTimes[len(m.ActualMiningTimes)-1], true
}

// BlocksNotAfter counts the actual mining times at or before t.
func (m *MinerInRound) BlocksNotAfter(t Timestamp) int {
	n := 0
	for _, at := range m.ActualMiningTimes {
		if at <= t {
			n++
		}
	}
	return n
}
