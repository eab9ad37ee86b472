package consensus

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-dpos/consensus/transition"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/electtype"
)

// GetConsensusExtraData builds the consensus extra-data of a block the miner
// is about to produce with the behaviour of its command.
func (e *Engine) GetConsensusExtraData(snap Reader, block inter.BlockContext, trigger inter.TriggerInformation) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	s, err := e.load(snap)
	if err != nil {
		return nil, err
	}
	if !s.current.HasMiner(trigger.Pubkey) {
		return nil, ErrNotMiner
	}

	var round *inter.Round
	switch trigger.Behaviour {
	case inter.UpdateValue:
		round, err = e.updateValueExtraData(s, block, trigger)
	case inter.TinyBlock:
		round, err = e.tinyBlockExtraData(s, block, trigger.Pubkey)
	case inter.NextRound, inter.NextTerm:
		round, err = e.successor(trigger.Behaviour, s.current, trigger.Pubkey, block.Time, s.state.BlockchainStartTimestamp)
	default:
		return nil, fmt.Errorf("%w: %s", inter.ErrUnknownBehaviour, trigger.Behaviour)
	}
	if err != nil {
		return nil, err
	}

	header := &inter.HeaderInformation{
		SenderPubkey: trigger.Pubkey,
		Behaviour:    trigger.Behaviour,
		Round:        round,
	}
	return header.MarshalBinary()
}

func (e *Engine) updateValueExtraData(s *snapshot, block inter.BlockContext, trigger inter.TriggerInformation) (*inter.Round, error) {
	r := s.current.Copy()
	m := r.Miner(trigger.Pubkey)
	m.ProducedBlocks++
	m.ProducedTinyBlocks++
	m.ActualMiningTimes = append(m.ActualMiningTimes, block.Time)

	out := transition.OutValue(trigger.InValue)
	var sig hash.Hash
	if r.IsMinerListJustChanged || s.previous.Empty() {
		sig = transition.FirstSignature(trigger.InValue)
	} else {
		sig = transition.CalculateSignature(s.previous, trigger.InValue)
	}

	prevIn := trigger.PreviousInValue
	if prevIn != (hash.Hash{}) {
		var committed *inter.MinerInRound
		if !s.previous.Empty() {
			committed = s.previous.Miner(trigger.Pubkey)
		}
		if committed == nil || transition.OutValue(prevIn) != committed.OutValue {
			e.log.Debug("Dropping unverifiable previous in value", "miner", trigger.Pubkey, "round", r.RoundNumber)
			prevIn = hash.Hash{}
		}
	}

	if err := transition.ApplyUpdateValue(r, trigger.Pubkey, prevIn, out, sig); err != nil {
		return nil, err
	}
	m.ImpliedIrreversibleBlockHeight = block.Height
	return r.UpdateValueRound(trigger.Pubkey)
}

func (e *Engine) tinyBlockExtraData(s *snapshot, block inter.BlockContext, pubkey string) (*inter.Round, error) {
	r := s.current.Copy()
	m := r.Miner(pubkey)
	m.ProducedBlocks++
	m.ProducedTinyBlocks++
	m.ActualMiningTimes = append(m.ActualMiningTimes, block.Time)
	return r.TinyBlockRound(pubkey)
}

// successor builds the round a terminating block of sender produced at now
// opens after base.
func (e *Engine) successor(b inter.Behaviour, base *inter.Round, sender string, now, chainStart inter.Timestamp) (*inter.Round, error) {
	var (
		next *inter.Round
		err  error
	)
	switch b {
	case inter.NextRound:
		next, err = transition.NextRound(base, now, chainStart)
	case inter.NextTerm:
		var victories []electtype.Victory
		if victories, err = e.victories(base.TermNumber + 1); err == nil {
			next, err = transition.NextTerm(base, victories, e.cfg.OrderPolicy, now, chainStart)
		}
	default:
		return nil, fmt.Errorf("%w: %s", inter.ErrUnknownBehaviour, b)
	}
	if err != nil {
		return nil, err
	}
	transition.RecordTerminator(next, sender, now)
	return next, nil
}

// rebuildSuccessor rebuilds the next round announced by a terminating block.
// The block time is read back from the schedule: the first slot of a new
// round starts one interval after it.
func (e *Engine) rebuildSuccessor(b inter.Behaviour, base, provided *inter.Round, sender string, chainStart inter.Timestamp) (*inter.Round, error) {
	if provided.Empty() {
		return nil, transition.ErrNoMiners
	}
	now := provided.StartTime().Sub(base.MiningInterval())
	return e.successor(b, base, sender, now, chainStart)
}
