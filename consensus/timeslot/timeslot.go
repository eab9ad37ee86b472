// Package timeslot locates a point in time relative to the time slots of a
// round. Every function is pure: the same round and clock reading give the
// same answer on every node.
package timeslot

import (
	"errors"

	"github.com/rony4d/go-dpos/inter"
)

var (
	ErrUninitializedRound = errors.New("round is not initialized")
	ErrBrokenSchedule     = errors.New("round has no mining interval")
)

// Slot is the position of now relative to a miner's time slot
// [Start, End).
type Slot struct {
	Miner *inter.MinerInRound
	Start inter.Timestamp
	End   inter.Timestamp

	Arrived  bool
	InWindow bool
	Passed   bool
}

// Evaluate finds the slot of pubkey in r.
//
// Round 1 is scheduled from the genesis time rather than from the moment the
// first block appeared, so there a slot is passed once enough intervals went
// by since the first miner's first block. Until the first miner produced,
// no slot of round 1 is passed.
func Evaluate(r *inter.Round, pubkey string, now inter.Timestamp) (Slot, error) {
	if r == nil || r.RoundNumber < 1 || len(r.Miners) == 0 {
		return Slot{}, ErrUninitializedRound
	}
	m := r.Miner(pubkey)
	if m == nil {
		return Slot{}, inter.ErrMinerNotFound
	}
	interval := r.MiningInterval()
	if interval == 0 {
		return Slot{}, ErrBrokenSchedule
	}

	s := Slot{
		Miner: m,
		Start: m.ExpectedMiningTime,
		End:   m.ExpectedMiningTime + interval,
	}
	s.Arrived = now >= s.Start
	s.InWindow = s.Arrived && now < s.End
	if r.RoundNumber != 1 {
		s.Passed = now >= s.End
		return s, nil
	}

	first := r.FirstMiner()
	if len(first.ActualMiningTimes) == 0 {
		return s, nil
	}
	elapsed := now.Sub(first.ActualMiningTimes[0])
	s.Passed = uint64(m.Order) < uint64(elapsed/interval)+1
	return s, nil
}

// BlocksBeforeRoundStart counts the blocks the previous round's extra block
// producer made in r before r started. They are credited back to its own
// slot, except in the first round of a term.
func BlocksBeforeRoundStart(r *inter.Round, m *inter.MinerInRound) int {
	if r.IsMinerListJustChanged || r.ExtraBlockProducerOfPreviousRound != m.Pubkey {
		return 0
	}
	start := r.StartTime()
	n := 0
	for _, t := range m.ActualMiningTimes {
		if t < start {
			n++
		}
	}
	return n
}

// RemainingTinyBlocks reports how many more blocks m may produce now: before
// the round start (as the previous extra block producer) or within its slot.
func RemainingTinyBlocks(r *inter.Round, m *inter.MinerInRound, max int, now inter.Timestamp) int {
	produced := len(m.ActualMiningTimes)
	allowed := max
	if now >= r.StartTime() {
		allowed += BlocksBeforeRoundStart(r, m)
	}
	if produced >= allowed {
		return 0
	}
	return allowed - produced
}

// ArrangeAbnormalMiningTime picks when pubkey should terminate the round.
// The extra block producer gets the extra block slot while it is still
// open. Everyone else waits for its own slot in the first round that has not
// started yet, as if the missed rounds were produced on schedule.
func ArrangeAbnormalMiningTime(r *inter.Round, pubkey string, now inter.Timestamp) (inter.Timestamp, error) {
	if r == nil || r.RoundNumber < 1 || len(r.Miners) == 0 {
		return 0, ErrUninitializedRound
	}
	m := r.Miner(pubkey)
	if m == nil {
		return 0, inter.ErrMinerNotFound
	}
	interval := r.MiningInterval()
	total := r.TotalDuration()
	if interval == 0 || total == 0 {
		return 0, ErrBrokenSchedule
	}

	if ebp := r.ExtraBlockProducer(); ebp != nil && ebp.Pubkey == pubkey {
		if ebmt := r.ExtraBlockMiningTime(); ebmt+interval > now {
			return ebmt, nil
		}
	}

	start := r.StartTime()
	missed := now.Sub(start) / total
	future := start + (missed+1)*total
	return future + inter.Timestamp(m.Order)*interval, nil
}
