// Package behaviour decides what a miner should do next: produce its first
// block of the round, a tiny block, terminate the round or nothing.
package behaviour

import (
	"github.com/rony4d/go-dpos/consensus/timeslot"
	"github.com/rony4d/go-dpos/dpos"
	"github.com/rony4d/go-dpos/inter"
)

// Context is everything a decision depends on.
type Context struct {
	Round            *inter.Round
	Pubkey           string
	MaxBlocksPerSlot int
	Now              inter.Timestamp

	ChainStart inter.Timestamp
	TermPeriod inter.Timestamp

	TinyBlocks inter.TinyBlocksCounter
}

// TermPolicy chooses how a round ends, once it is known the round must end.
type TermPolicy func(ctx *Context) inter.Behaviour

// Provider runs the decision shared by main and side chains with its own
// term policy.
type Provider struct {
	policy TermPolicy
}

func New(policy TermPolicy) *Provider {
	return &Provider{policy: policy}
}

func NewMainChainProvider() *Provider {
	return New(MainChainPolicy)
}

func NewSideChainProvider() *Provider {
	return New(SideChainPolicy)
}

// ForChain returns the provider of a chain profile.
func ForChain(p dpos.ChainProfile) *Provider {
	if p == dpos.SideChain {
		return NewSideChainProvider()
	}
	return NewMainChainProvider()
}

// Decide is deterministic in ctx. Malformed input yields inter.Invalid.
func (p *Provider) Decide(ctx Context) inter.Behaviour {
	r := ctx.Round
	if r == nil || r.RoundNumber == 0 || ctx.MaxBlocksPerSlot <= 0 {
		return inter.Invalid
	}
	slot, err := timeslot.Evaluate(r, ctx.Pubkey, ctx.Now)
	if err != nil {
		return inter.Invalid
	}
	m := slot.Miner

	// somebody kept producing past its allowance, the others take over
	if r.RoundNumber > 2 && len(r.Miners) > 1 && ctx.TinyBlocks.Pubkey != "" && ctx.TinyBlocks.BlocksCount < 0 {
		if ctx.TinyBlocks.Pubkey == ctx.Pubkey {
			return inter.Nothing
		}
		return inter.NextRound
	}

	if !m.HasOutValue() {
		if r.RoundNumber == 1 && m.Order != 1 && !r.FirstMiner().HasOutValue() {
			return inter.NextRound
		}
		if r.ExtraBlockProducerOfPreviousRound == m.Pubkey && ctx.Now < r.StartTime() &&
			len(m.ActualMiningTimes) < ctx.MaxBlocksPerSlot {
			return inter.TinyBlock
		}
		if !slot.Arrived {
			return inter.Nothing
		}
		if !slot.Passed {
			return inter.UpdateValue
		}
		return p.Terminate(ctx)
	}

	if !slot.Passed && timeslot.RemainingTinyBlocks(r, m, ctx.MaxBlocksPerSlot, ctx.Now) > 0 {
		return inter.TinyBlock
	}
	return p.Terminate(ctx)
}

// Terminate chooses between NextRound and NextTerm for a miner which has to
// end the round.
func (p *Provider) Terminate(ctx Context) inter.Behaviour {
	if ctx.Round.Empty() {
		return inter.Invalid
	}
	if ctx.Round.RoundNumber == 1 || len(ctx.Round.Miners) == 1 {
		return inter.NextRound
	}
	return p.policy(&ctx)
}
