// Package transition builds the successor of a round: the next round of the
// same term, the first round of a new term, and the merge of the compact
// deltas published by UpdateValue and TinyBlock blocks.
package transition

import (
	"errors"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-dpos/inter"
)

var (
	ErrNoMiners       = errors.New("miner list is empty")
	ErrNoRound        = errors.New("no current round")
	ErrBrokenSchedule = errors.New("round has no mining interval")
	ErrOrderConflict  = errors.New("miners agreed on conflicting orders")
	ErrDuplicateMiner = errors.New("miner listed twice")
)

// NextRound places the miners of current into the next round of the same
// term. Miners which mined keep the order they agreed on, the others fill the
// remaining orders and get a missed time slot.
func NextRound(current *inter.Round, now, chainStart inter.Timestamp) (*inter.Round, error) {
	if current.Empty() {
		return nil, ErrNoRound
	}
	interval := current.MiningInterval()
	if interval == 0 {
		return nil, ErrBrokenSchedule
	}
	n := len(current.Miners)

	next := &inter.Round{
		RoundNumber:                           current.RoundNumber + 1,
		TermNumber:                            current.TermNumber,
		ConfirmedIrreversibleBlockHeight:      current.ConfirmedIrreversibleBlockHeight,
		ConfirmedIrreversibleBlockRoundNumber: current.ConfirmedIrreversibleBlockRoundNumber,
		BlockchainAge:                         blockchainAge(current, now, chainStart),
		Miners:                                make([]*inter.MinerInRound, 0, n),
	}

	mined := current.MinedMiners()
	sort.SliceStable(mined, func(i, j int) bool {
		return mined[i].FinalOrderOfNextRound < mined[j].FinalOrderOfNextRound
	})
	occupied := make(map[uint32]bool, len(mined))
	for _, m := range mined {
		order := m.FinalOrderOfNextRound
		if order == 0 || order > uint32(n) || occupied[order] {
			return nil, ErrOrderConflict
		}
		occupied[order] = true
		next.Miners = append(next.Miners, &inter.MinerInRound{
			Pubkey:             m.Pubkey,
			Order:              order,
			ExpectedMiningTime: now + inter.Timestamp(order)*interval,
			ProducedBlocks:     m.ProducedBlocks,
			MissedTimeSlots:    m.MissedTimeSlots,
		})
	}

	free := make([]uint32, 0, n)
	for order := uint32(1); order <= uint32(n); order++ {
		if !occupied[order] {
			free = append(free, order)
		}
	}
	for i, m := range current.NotMinedMiners() {
		if i >= len(free) {
			return nil, ErrOrderConflict
		}
		order := free[i]
		next.Miners = append(next.Miners, &inter.MinerInRound{
			Pubkey:             m.Pubkey,
			Order:              order,
			ExpectedMiningTime: now + inter.Timestamp(order)*interval,
			ProducedBlocks:     m.ProducedBlocks,
			MissedTimeSlots:    m.MissedTimeSlots + 1,
		})
	}
	next.SortMiners()

	ebp := next.MinerByOrder(NextExtraBlockProducerOrder(current))
	if ebp == nil {
		ebp = next.Miners[0]
	}
	ebp.IsExtraBlockProducer = true

	breakContinuousMining(current, next)
	return next, nil
}

func blockchainAge(current *inter.Round, now, chainStart inter.Timestamp) uint64 {
	if current.RoundNumber == 1 {
		return 1
	}
	return uint64(now.Sub(chainStart).Unix())
}

// NextExtraBlockProducerOrder derives the extra block producer of the next
// round from the signature of the first miner which signed in current.
func NextExtraBlockProducerOrder(current *inter.Round) uint32 {
	for _, m := range current.Miners {
		if m.Signature == (hash.Hash{}) {
			continue
		}
		return absModulus(m.Signature, len(current.Miners)) + 1
	}
	return 1
}

// breakContinuousMining keeps a miner from producing two slots in a row: the
// producer of the current extra block must not open the next round, and the
// last miner of the next round must not produce its extra block.
func breakContinuousMining(current, next *inter.Round) {
	n := uint32(len(next.Miners))
	if n <= 1 {
		return
	}
	first := next.MinerByOrder(1)
	if ebp := current.ExtraBlockProducer(); ebp != nil && first != nil && first.Pubkey == ebp.Pubkey {
		swapSlots(first, next.MinerByOrder(2))
	}
	last := next.MinerByOrder(n)
	if ebp := next.ExtraBlockProducer(); ebp != nil && last != nil && last.Pubkey == ebp.Pubkey {
		swapSlots(last, next.MinerByOrder(n-1))
	}
	next.SortMiners()
}

func swapSlots(a, b *inter.MinerInRound) {
	if a == nil || b == nil {
		return
	}
	a.Order, b.Order = b.Order, a.Order
	a.ExpectedMiningTime, b.ExpectedMiningTime = b.ExpectedMiningTime, a.ExpectedMiningTime
}

// RecordTerminator credits the block which ended the previous round to its
// producer in next.
func RecordTerminator(next *inter.Round, sender string, now inter.Timestamp) {
	next.ExtraBlockProducerOfPreviousRound = sender
	m := next.Miner(sender)
	if m == nil {
		return
	}
	m.ProducedBlocks++
	m.ProducedTinyBlocks = 1
	m.ActualMiningTimes = append(m.ActualMiningTimes, now)
}
