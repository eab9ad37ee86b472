package validation

import (
	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-dpos/consensus/transition"
	"github.com/rony4d/go-dpos/inter"
)

// MiningPermission requires the sender to be a miner of the current round.
type MiningPermission struct{}

func (MiningPermission) Validate(ctx *Context) Result {
	if ctx.BaseRound.Empty() || !ctx.BaseRound.HasMiner(ctx.SenderPubkey) {
		return Fail("sender is not a miner")
	}
	return Ok()
}

// TimeSlot checks the schedule of a new round, or that the sender produced
// within its own slot.
type TimeSlot struct{}

func (TimeSlot) Validate(ctx *Context) Result {
	if ctx.Behaviour.Terminates() {
		return CheckRoundTimeSlots(ctx.ProvidedRound)
	}
	base := ctx.BaseRound
	if base.RoundNumber == 1 || base.IsMinerListJustChanged {
		return Ok()
	}
	recovered := ctx.RecoveredRound
	if recovered == nil {
		recovered = ctx.ProvidedRound
	}
	m := base.Miner(ctx.SenderPubkey)
	produced := recovered.Miner(ctx.SenderPubkey)
	if m == nil || produced == nil {
		return Fail("sender is not a miner")
	}
	latest, ok := produced.LatestMiningTime()
	if !ok {
		return Ok()
	}
	if latest < m.ExpectedMiningTime {
		// tiny blocks of the previous extra block slot
		if latest < base.StartTime() && base.ExtraBlockProducerOfPreviousRound == ctx.SenderPubkey {
			return Ok()
		}
		return Fail("time slot is not arrived")
	}
	if latest >= m.ExpectedMiningTime+base.MiningInterval() {
		return Fail("time slot already passed")
	}
	return Ok()
}

// CheckRoundTimeSlots requires evenly spread expected mining times.
func CheckRoundTimeSlots(r *inter.Round) Result {
	if r.Empty() {
		return Fail("round has no miners")
	}
	if len(r.Miners) == 1 {
		return Ok()
	}
	for i, m := range r.Miners {
		if m.ExpectedMiningTime == 0 {
			return Fail("incorrect expected mining time")
		}
		if m.Order != uint32(i+1) {
			return Fail("incorrect miner order")
		}
	}
	gap := func(i int) int64 {
		return int64(r.Miners[i+1].ExpectedMiningTime) - int64(r.Miners[i].ExpectedMiningTime)
	}
	base := gap(0)
	if base <= 0 {
		return Fail("mining interval must be greater than 0")
	}
	for i := 1; i < len(r.Miners)-1; i++ {
		diff := gap(i) - base
		if diff < 0 {
			diff = -diff
		}
		if diff > base {
			return Fail("time slots are so different")
		}
	}
	return Ok()
}

// ContinuousBlocks rejects a miner which used up its continuous blocks.
type ContinuousBlocks struct{}

func (ContinuousBlocks) Validate(ctx *Context) Result {
	if ctx.ProvidedRound.RoundNumber > 2 && len(ctx.BaseRound.Miners) > 1 &&
		ctx.TinyBlocks.Pubkey == ctx.SenderPubkey && ctx.TinyBlocks.BlocksCount < 0 {
		return Fail("sender produced too many continuous blocks")
	}
	return Ok()
}

// UpdateValue checks the commitment and the reveal of the sender.
type UpdateValue struct{}

func (UpdateValue) Validate(ctx *Context) Result {
	m := ctx.ProvidedRound.Miner(ctx.SenderPubkey)
	if m == nil {
		return Fail("sender is missing in provided round")
	}
	if m.OutValue == (hash.Hash{}) || m.Signature == (hash.Hash{}) {
		return Fail("incorrect new out value")
	}
	if m.PreviousInValue == (hash.Hash{}) {
		return Ok()
	}
	var prev *inter.MinerInRound
	if !ctx.PreviousRound.Empty() {
		prev = ctx.PreviousRound.Miner(ctx.SenderPubkey)
	}
	if prev == nil || transition.OutValue(m.PreviousInValue) != prev.OutValue {
		return Fail("incorrect previous in value")
	}
	return Ok()
}

// LibInformation rejects a regression of the LIB claim. A compact delta may
// leave the claim out, a complete next round always carries it.
type LibInformation struct{}

func (LibInformation) Validate(ctx *Context) Result {
	base, provided := ctx.BaseRound, ctx.ProvidedRound
	claimed := ctx.Behaviour.Terminates() ||
		provided.ConfirmedIrreversibleBlockHeight != 0 && provided.ConfirmedIrreversibleBlockRoundNumber != 0
	if claimed && (base.ConfirmedIrreversibleBlockHeight > provided.ConfirmedIrreversibleBlockHeight ||
		base.ConfirmedIrreversibleBlockRoundNumber > provided.ConfirmedIrreversibleBlockRoundNumber) {
		return Fail("incorrect lib information")
	}
	p := provided.Miner(ctx.SenderPubkey)
	b := base.Miner(ctx.SenderPubkey)
	if p != nil && b != nil && p.ImpliedIrreversibleBlockHeight != 0 &&
		b.ImpliedIrreversibleBlockHeight > p.ImpliedIrreversibleBlockHeight {
		return Fail("incorrect implied lib height")
	}
	return Ok()
}

// NextRoundMiningOrder requires every miner which published its out value
// to hold a distinct order of the next round.
type NextRoundMiningOrder struct{}

func (NextRoundMiningOrder) Validate(ctx *Context) Result {
	orders := make(map[uint32]struct{}, len(ctx.BaseRound.Miners))
	published := 0
	for _, m := range ctx.BaseRound.Miners {
		if m.FinalOrderOfNextRound > 0 {
			orders[m.FinalOrderOfNextRound] = struct{}{}
		}
		if m.HasOutValue() {
			published++
		}
	}
	if len(orders) != published {
		return Fail("invalid final order of next round")
	}
	return Ok()
}

// RoundTerminate checks the numbers of the next round and that it exposes no
// in values.
type RoundTerminate struct{}

func (RoundTerminate) Validate(ctx *Context) Result {
	base, provided := ctx.BaseRound, ctx.ProvidedRound
	if base.RoundNumber+1 != provided.RoundNumber {
		return Fail("incorrect round number for next round")
	}
	for _, m := range provided.Miners {
		if m.InValue != (hash.Hash{}) {
			return Fail("incorrect next round information")
		}
	}
	if ctx.Behaviour == inter.NextTerm && base.TermNumber+1 != provided.TermNumber {
		return Fail("incorrect term number for next round")
	}
	if ctx.Behaviour == inter.NextRound && base.TermNumber != provided.TermNumber {
		return Fail("incorrect term number for next round")
	}
	return Ok()
}

// NextRoundInformation requires the next round to be the one rebuilt from the
// base round.
type NextRoundInformation struct{}

func (NextRoundInformation) Validate(ctx *Context) Result {
	if ctx.ExpectedRound == nil {
		return Fail("next round can't be rebuilt")
	}
	return SameSuccessor(ctx.ExpectedRound, ctx.ProvidedRound)
}

// SameSuccessor compares a next round with the expected one, round-level
// fields the comparison hash leaves out included.
func SameSuccessor(expected, provided *inter.Round) Result {
	if provided.Empty() ||
		expected.Hash(true) != provided.Hash(true) ||
		expected.ConfirmedIrreversibleBlockHeight != provided.ConfirmedIrreversibleBlockHeight ||
		expected.ConfirmedIrreversibleBlockRoundNumber != provided.ConfirmedIrreversibleBlockRoundNumber ||
		expected.ExtraBlockProducerOfPreviousRound != provided.ExtraBlockProducerOfPreviousRound ||
		expected.IsMinerListJustChanged != provided.IsMinerListJustChanged {
		return Fail(MsgUnexpectedSuccessor)
	}
	return Ok()
}
