package consensus

import (
	"github.com/rony4d/go-dpos/consensus/behaviour"
	"github.com/rony4d/go-dpos/consensus/timeslot"
	"github.com/rony4d/go-dpos/dpos"
	"github.com/rony4d/go-dpos/inter"
)

// GetConsensusCommand tells the miner what to produce next and when.
func (e *Engine) GetConsensusCommand(snap Reader, pubkey string, now inter.Timestamp) inter.ConsensusCommand {
	if e.err != nil {
		return inter.InvalidCommand()
	}
	s, err := e.load(snap)
	if err != nil {
		e.log.Debug("No consensus command", "err", err)
		return inter.InvalidCommand()
	}
	if !s.current.HasMiner(pubkey) {
		return inter.InvalidCommand()
	}
	_, max, err := e.maximumBlocksCount(snap, s.current)
	if err != nil {
		e.log.Warn("Failed to read mined miners", "round", s.current.RoundNumber, "err", err)
		return inter.InvalidCommand()
	}

	b := e.provider.Decide(behaviour.Context{
		Round:            s.current,
		Pubkey:           pubkey,
		MaxBlocksPerSlot: max,
		Now:              now,
		ChainStart:       s.state.BlockchainStartTimestamp,
		TermPeriod:       e.rules.Terms.Period,
		TinyBlocks:       s.state.TinyBlocks,
	})
	behaviourCounters[b].Inc(1)

	cmd := e.command(b, s, pubkey, now, max)
	e.log.Trace("Consensus command", "miner", pubkey, "round", s.current.RoundNumber, "cmd", cmd)
	return cmd
}

// maximumBlocksCount reads the mined-miner lists MaximumBlocksCount needs.
func (e *Engine) maximumBlocksCount(r Reader, current *inter.Round) (timeslot.MiningStatus, int, error) {
	in := timeslot.StatusInput{
		CurrentRound:  current.RoundNumber,
		LibRound:      current.ConfirmedIrreversibleBlockRoundNumber,
		MaxTinyBlocks: e.rules.Mining.MaxTinyBlocks,
		MinersCount:   len(current.Miners),
	}
	if in.LibRound != 0 && in.CurrentRound > in.LibRound+2 {
		var err error
		if in.MinedPrevious, err = r.GetMinedMiners(in.CurrentRound - 1); err != nil {
			return timeslot.Normal, 0, err
		}
		if in.MinedBeforePrevious, err = r.GetMinedMiners(in.CurrentRound - 2); err != nil {
			return timeslot.Normal, 0, err
		}
	}
	status, max := timeslot.MaximumBlocksCount(in)
	return status, max, nil
}

// limits are derived from the interval of the round rather than the rules.
func (e *Engine) limits(r *inter.Round) dpos.MiningRules {
	mining := e.rules.Mining
	mining.Interval = r.MiningInterval()
	return mining
}

func (e *Engine) command(b inter.Behaviour, s *snapshot, pubkey string, now inter.Timestamp, max int) inter.ConsensusCommand {
	switch b {
	case inter.UpdateValue:
		return e.updateValueCommand(s, pubkey, now)
	case inter.TinyBlock:
		return e.tinyBlockCommand(s, pubkey, now, max)
	case inter.NextRound, inter.NextTerm:
		return e.terminateCommand(b, s, pubkey, now)
	}
	return inter.InvalidCommand()
}

func (e *Engine) hint(s *snapshot) inter.CommandHint {
	h := inter.CommandHint{RoundID: s.current.ID()}
	if !s.previous.Empty() {
		h.PreviousRoundID = s.previous.ID()
	}
	return h
}

func (e *Engine) updateValueCommand(s *snapshot, pubkey string, now inter.Timestamp) inter.ConsensusCommand {
	r := s.current
	m := r.Miner(pubkey)
	lim := e.limits(r)
	expected := m.ExpectedMiningTime
	return inter.ConsensusCommand{
		Behaviour:                      inter.UpdateValue,
		ArrangedMiningTime:             inter.MaxOf(expected, now),
		MiningDueTime:                  expected + lim.Interval,
		TimeSlotMilliseconds:           lim.Interval.Milliseconds(),
		LimitMillisecondsOfMiningBlock: lim.DefaultBlockMiningLimit().Milliseconds(),
		Hint:                           e.hint(s),
	}
}

func (e *Engine) tinyBlockCommand(s *snapshot, pubkey string, now inter.Timestamp, max int) inter.ConsensusCommand {
	r := s.current
	m := r.Miner(pubkey)
	lim := e.limits(r)

	var slotStart inter.Timestamp
	switch {
	case now < r.StartTime():
		slotStart = r.StartTime() - lim.Interval
	case r.RoundNumber == 1 && len(m.ActualMiningTimes) != 0:
		slotStart = m.ActualMiningTimes[0]
	default:
		slotStart = m.ExpectedMiningTime
	}
	slotEnd := slotStart + lim.Interval

	arranged := now + lim.TinyBlockMinimumInterval
	if arranged >= slotEnd {
		// the slot is over, the miner may still end the round
		return e.terminateCommand(e.provider.Terminate(behaviour.Context{
			Round:            r,
			Pubkey:           pubkey,
			MaxBlocksPerSlot: max,
			Now:              arranged,
			ChainStart:       s.state.BlockchainStartTimestamp,
			TermPeriod:       e.rules.Terms.Period,
			TinyBlocks:       s.state.TinyBlocks,
		}), s, pubkey, now)
	}

	limit := lim.DefaultBlockMiningLimit()
	if timeslot.RemainingTinyBlocks(r, m, max, now) <= 1 {
		limit = lim.LastTinyBlockMiningLimit()
	}
	return inter.ConsensusCommand{
		Behaviour:                      inter.TinyBlock,
		ArrangedMiningTime:             arranged,
		MiningDueTime:                  slotEnd,
		TimeSlotMilliseconds:           lim.Interval.Milliseconds(),
		LimitMillisecondsOfMiningBlock: limit.Milliseconds(),
		Hint:                           e.hint(s),
	}
}

func (e *Engine) terminateCommand(b inter.Behaviour, s *snapshot, pubkey string, now inter.Timestamp) inter.ConsensusCommand {
	if !b.Terminates() {
		return inter.InvalidCommand()
	}
	r := s.current
	m := r.Miner(pubkey)
	lim := e.limits(r)

	var arranged inter.Timestamp
	if r.RoundNumber == 1 && m.Order != 1 {
		arranged = now + inter.Timestamp(int(m.Order)+len(r.Miners)-1)*lim.Interval
	} else {
		var err error
		arranged, err = timeslot.ArrangeAbnormalMiningTime(r, pubkey, now)
		if err != nil {
			e.log.Warn("Failed to arrange extra block", "round", r.RoundNumber, "miner", pubkey, "err", err)
			return inter.InvalidCommand()
		}
	}

	limit := lim.DefaultBlockMiningLimit()
	if b == inter.NextTerm {
		limit = lim.LastBlockOfCurrentTermMiningLimit()
	}
	return inter.ConsensusCommand{
		Behaviour:                      b,
		ArrangedMiningTime:             arranged,
		MiningDueTime:                  arranged + lim.Interval,
		TimeSlotMilliseconds:           lim.Interval.Milliseconds(),
		LimitMillisecondsOfMiningBlock: limit.Milliseconds(),
		Hint:                           e.hint(s),
	}
}
