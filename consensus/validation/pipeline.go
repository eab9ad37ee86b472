// Package validation checks the consensus extra-data of a block header
// against the state it is applied to.
package validation

import (
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/rony4d/go-dpos/inter"
)

// MsgUnexpectedSuccessor rejects a next round which differs from the rebuilt one.
const MsgUnexpectedSuccessor = "next round information is different with the rebuilt round"

// Result of a validation. The zero value is a failure without a message.
type Result struct {
	Success bool
	Message string
}

func Ok() Result {
	return Result{Success: true}
}

func Fail(msg string) Result {
	return Result{Message: msg}
}

// And returns the first failure.
func (r Result) And(other Result) Result {
	if !r.Success {
		return r
	}
	return other
}

// Context is the state a header is validated against.
type Context struct {
	// BaseRound is the current round of the state.
	BaseRound *inter.Round
	// ProvidedRound is the round carried by the header: a compact delta or
	// the complete next round.
	ProvidedRound *inter.Round
	// RecoveredRound is BaseRound with the delta merged, or ProvidedRound for
	// round terminating behaviours.
	RecoveredRound *inter.Round
	// PreviousRound is the round before BaseRound. It is empty in round 1.
	PreviousRound *inter.Round
	// ExpectedRound is the successor of BaseRound rebuilt for a round
	// terminating behaviour, nil if it can't be rebuilt.
	ExpectedRound *inter.Round

	SenderPubkey string
	Behaviour    inter.Behaviour
	TinyBlocks   inter.TinyBlocksCounter

	CurrentRoundNumber uint64
	CurrentTermNumber  uint64
}

type Validator interface {
	Validate(ctx *Context) Result
}

// Func adapts a function to the Validator interface.
type Func func(ctx *Context) Result

func (f Func) Validate(ctx *Context) Result {
	return f(ctx)
}

// Pipeline runs validators in order and stops at the first failure.
type Pipeline []Validator

func (p Pipeline) Validate(ctx *Context) Result {
	for _, v := range p {
		if res := v.Validate(ctx); !res.Success {
			failuresCounter.Inc(1)
			return res
		}
	}
	return Ok()
}

var failuresCounter = metrics.GetOrRegisterCounter("dpos/validation/failures", nil)

// ForBehaviour composes the pipeline of a behaviour. Extra validators run
// last.
func ForBehaviour(b inter.Behaviour, extra ...Validator) Pipeline {
	p := Pipeline{MiningPermission{}, TimeSlot{}, ContinuousBlocks{}}
	switch b {
	case inter.UpdateValue:
		p = append(p, UpdateValue{}, LibInformation{})
	case inter.TinyBlock:
		p = append(p, LibInformation{})
	case inter.NextRound:
		p = append(p, NextRoundMiningOrder{}, RoundTerminate{}, LibInformation{}, NextRoundInformation{})
	case inter.NextTerm:
		p = append(p, RoundTerminate{}, LibInformation{}, NextRoundInformation{})
	default:
		return Pipeline{Func(func(*Context) Result {
			return Fail("behaviour " + b.String() + " can't produce a block")
		})}
	}
	return append(p, extra...)
}
