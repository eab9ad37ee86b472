package consensus

import (
	"github.com/rony4d/go-dpos/consensus/transition"
	"github.com/rony4d/go-dpos/consensus/validation"
	"github.com/rony4d/go-dpos/inter"
)

const msgRoundMismatch = "current round information is different with consensus extra data"

// ValidateConsensusBeforeExecution checks the consensus extra-data of a
// block against the state it is going to be executed on.
func (e *Engine) ValidateConsensusBeforeExecution(snap Reader, extraData []byte) validation.Result {
	h, err := inter.DecodeHeaderInformation(extraData)
	if err != nil {
		return validation.Fail("invalid consensus extra data: " + err.Error())
	}
	s, err := e.load(snap)
	if err != nil {
		return validation.Fail("failed to read consensus state: " + err.Error())
	}

	ctx := &validation.Context{
		BaseRound:          s.current,
		ProvidedRound:      h.Round,
		PreviousRound:      s.previous,
		SenderPubkey:       h.SenderPubkey,
		Behaviour:          h.Behaviour,
		TinyBlocks:         s.state.TinyBlocks,
		CurrentRoundNumber: s.state.CurrentRoundNumber,
		CurrentTermNumber:  s.state.CurrentTermNumber,
	}
	if h.Behaviour.Terminates() {
		ctx.RecoveredRound = h.Round
		ctx.ExpectedRound, err = e.rebuildSuccessor(h.Behaviour, s.current, h.Round, h.SenderPubkey, s.state.BlockchainStartTimestamp)
		if err != nil {
			e.log.Debug("Can't rebuild next round", "behaviour", h.Behaviour, "round", s.current.RoundNumber, "err", err)
		}
	} else {
		if h.Round.RoundNumber != s.current.RoundNumber || h.Round.RoundIDForValidation != s.current.ID() {
			return e.rejected(h, validation.Fail("extra data was built for another round"))
		}
		ctx.RecoveredRound, err = transition.Recover(h.Behaviour, s.current, h.Round, h.SenderPubkey)
		if err != nil {
			return e.rejected(h, validation.Fail("can't recover round: "+err.Error()))
		}
	}

	res := validation.ForBehaviour(h.Behaviour, e.cfg.ExtraValidators...).Validate(ctx)
	if !res.Success {
		return e.rejected(h, res)
	}
	return res
}

func (e *Engine) rejected(h *inter.HeaderInformation, res validation.Result) validation.Result {
	e.log.Warn("Consensus extra data rejected", "sender", h.SenderPubkey, "behaviour", h.Behaviour,
		"round", h.Round.RoundNumber, "reason", res.Message)
	return res
}

// ValidateConsensusAfterExecution checks that executing the consensus
// transaction led to the round the extra-data announced. snap is the state
// after execution.
func (e *Engine) ValidateConsensusAfterExecution(snap Reader, extraData []byte) validation.Result {
	h, err := inter.DecodeHeaderInformation(extraData)
	if err != nil {
		return validation.Fail("invalid consensus extra data: " + err.Error())
	}
	s, err := e.load(snap)
	if err != nil {
		return validation.Fail("failed to read consensus state: " + err.Error())
	}

	if h.Behaviour.Terminates() {
		return e.validateSuccessorAfterExecution(s, h)
	}

	announced, err := transition.Recover(h.Behaviour, s.current.Copy(), h.Round, h.SenderPubkey)
	if err != nil {
		return validation.Fail("can't recover round: " + err.Error())
	}

	withPrev := !s.current.IsMinerListJustChanged
	if announced.Hash(withPrev) != s.current.Hash(withPrev) {
		return e.mismatch(s, h, msgRoundMismatch)
	}
	return validation.Ok()
}

// validateSuccessorAfterExecution rebuilds the new current round from the
// round it terminated.
func (e *Engine) validateSuccessorAfterExecution(s *snapshot, h *inter.HeaderInformation) validation.Result {
	if s.previous.Empty() || s.current.RoundNumber != s.previous.RoundNumber+1 {
		return e.mismatch(s, h, msgRoundMismatch)
	}
	expected, err := e.rebuildSuccessor(h.Behaviour, s.previous, s.current, h.SenderPubkey, s.state.BlockchainStartTimestamp)
	if err != nil {
		return validation.Fail("can't rebuild next round: " + err.Error())
	}
	if res := validation.SameSuccessor(expected, s.current); !res.Success {
		return e.mismatch(s, h, res.Message)
	}
	if h.Round.Hash(true) != s.current.Hash(true) {
		return e.mismatch(s, h, msgRoundMismatch)
	}
	return validation.Ok()
}

func (e *Engine) mismatch(s *snapshot, h *inter.HeaderInformation, msg string) validation.Result {
	mismatchCounter.Inc(1)
	e.cfg.Alerter.Alert(msg, map[string]interface{}{
		"sender":    h.SenderPubkey,
		"behaviour": h.Behaviour.String(),
		"round":     s.current.RoundNumber,
		"term":      s.current.TermNumber,
	})
	return validation.Fail(msg)
}
