package consensus

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-dpos/consensus/timeslot"
	"github.com/rony4d/go-dpos/consensus/transition"
	"github.com/rony4d/go-dpos/dpos/genesis"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/istate"
	"github.com/rony4d/go-dpos/inter/itr"
)

// Initialize builds the state of a new chain: round 1 of term 1.
func (e *Engine) Initialize(g genesis.Genesis) (*Changes, error) {
	if g.Rules.NetworkID != e.rules.NetworkID {
		return nil, ErrRulesMismatch
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	first, err := g.FirstRound()
	if err != nil {
		return nil, err
	}
	term := itr.FromRound(first)
	ch := &Changes{
		State: istate.ChainState{
			CurrentRoundNumber:       first.RoundNumber,
			CurrentTermNumber:        first.TermNumber,
			BlockchainStartTimestamp: g.StartTime,
		},
		Rounds: []*inter.Round{first},
		Terms:  []itr.TermRecord{term},
	}
	ch.emit(TermChanged{
		Term:             term.Term,
		FirstRoundNumber: term.FirstRoundNumber,
		Miners:           term.Miners,
	})
	e.log.Info("Consensus initialized", "miners", len(first.Miners), "start", g.StartTime)
	return ch, nil
}

// Process executes one consensus transaction of a block produced by
// block.Sender and returns the resulting state delta. snap is left intact.
func (e *Engine) Process(snap Reader, block inter.BlockContext, tx inter.ConsensusTransaction) (*Changes, error) {
	s, err := e.load(snap)
	if err != nil {
		return nil, err
	}
	ch := &Changes{State: s.state.Copy()}

	switch tx.Method {
	case inter.MethodUpdateValue:
		err = e.processUpdateValue(s, ch, block.Sender, tx.Input)
	case inter.MethodUpdateTinyBlockInformation:
		err = e.processTinyBlock(s, ch, block.Sender, tx.Input)
	case inter.MethodNextRound, inter.MethodNextTerm:
		err = e.processNextRound(s, ch, tx.Method == inter.MethodNextTerm, tx.Input)
	default:
		err = fmt.Errorf("%w: %s", inter.ErrUnknownMethod, tx.Method)
	}
	if err != nil {
		return nil, err
	}

	ch.State.LastBlock = block.Height
	terminating := tx.Method == inter.MethodNextRound || tx.Method == inter.MethodNextTerm
	if err := e.countTinyBlocks(overlay{snap, ch}, ch, block.Sender, terminating); err != nil {
		return nil, err
	}
	processedCounter.Inc(1)
	return ch, nil
}

func (e *Engine) processUpdateValue(s *snapshot, ch *Changes, sender string, raw []byte) error {
	var in inter.UpdateValueInput
	if err := in.UnmarshalBinary(raw); err != nil {
		return err
	}
	r := s.current.Copy()
	if in.RoundID != r.ID() {
		return ErrRoundMismatch
	}
	m := r.Miner(sender)
	if m == nil {
		return ErrNotMiner
	}

	m.ActualMiningTimes = append(m.ActualMiningTimes, in.ActualMiningTime)
	m.ProducedBlocks = in.ProducedBlocks
	m.ProducedTinyBlocks++
	m.OutValue = in.OutValue
	m.Signature = in.Signature
	m.SupposedOrderOfNextRound = in.SupposedOrderOfNextRound
	m.FinalOrderOfNextRound = in.SupposedOrderOfNextRound
	m.ImpliedIrreversibleBlockHeight = in.ImpliedIrreversibleBlockHeight
	if in.PreviousInValue != (hash.Hash{}) {
		m.PreviousInValue = in.PreviousInValue
	}
	for _, tune := range in.TuneOrderInformation {
		other := r.Miner(tune.Pubkey)
		if other == nil {
			return fmt.Errorf("tune order of %s: %w", tune.Pubkey, inter.ErrMinerNotFound)
		}
		other.FinalOrderOfNextRound = tune.Order
	}

	// the reveal completes the commitment of the previous round
	if in.PreviousInValue != (hash.Hash{}) && !s.previous.Empty() {
		if p := s.previous.Miner(sender); p != nil && p.InValue != in.PreviousInValue {
			prev := s.previous.Copy()
			prev.Miner(sender).InValue = in.PreviousInValue
			ch.putRound(prev)
		}
	}

	if transition.ConfirmIrreversibleBlock(r, s.previous) {
		libGauge.Update(int64(r.ConfirmedIrreversibleBlockHeight))
		ch.emit(IrreversibleBlockFound{
			Height:      r.ConfirmedIrreversibleBlockHeight,
			RoundNumber: r.ConfirmedIrreversibleBlockRoundNumber,
		})
		e.log.Debug("Irreversible block found", "height", r.ConfirmedIrreversibleBlockHeight, "round", r.RoundNumber)
	}
	ch.putRound(r)
	return nil
}

func (e *Engine) processTinyBlock(s *snapshot, ch *Changes, sender string, raw []byte) error {
	var in inter.TinyBlockInput
	if err := in.UnmarshalBinary(raw); err != nil {
		return err
	}
	r := s.current.Copy()
	if in.RoundID != r.ID() {
		return ErrRoundMismatch
	}
	m := r.Miner(sender)
	if m == nil {
		return ErrNotMiner
	}
	m.ActualMiningTimes = append(m.ActualMiningTimes, in.ActualMiningTime)
	m.ProducedBlocks = in.ProducedBlocks
	m.ProducedTinyBlocks++
	ch.putRound(r)
	return nil
}

func (e *Engine) processNextRound(s *snapshot, ch *Changes, newTerm bool, raw []byte) error {
	next := &inter.Round{}
	if err := next.UnmarshalBinary(raw); err != nil {
		return err
	}
	current := s.current
	if next.RoundNumber != current.RoundNumber+1 {
		return fmt.Errorf("%w: round %d after %d", ErrRoundMismatch, next.RoundNumber, current.RoundNumber)
	}
	wantTerm := current.TermNumber
	if newTerm {
		wantTerm++
	}
	if next.TermNumber != wantTerm {
		return fmt.Errorf("%w: term %d after %d", ErrRoundMismatch, next.TermNumber, current.TermNumber)
	}

	mined := current.MinedMiners()
	pubkeys := make([]string, len(mined))
	for i, m := range mined {
		pubkeys[i] = m.Pubkey
	}
	ch.MinedMiners = append(ch.MinedMiners, MinedMiners{RoundNumber: current.RoundNumber, Pubkeys: pubkeys})

	if current.RoundNumber == 1 {
		if start, ok := earliestMiningTime(current); ok {
			ch.State.BlockchainStartTimestamp = start
		}
	}

	ch.putRound(next)
	ch.State.CurrentRoundNumber = next.RoundNumber
	roundGauge.Update(int64(next.RoundNumber))
	if keep := e.rules.History.KeepRounds; keep != 0 && next.RoundNumber > keep {
		ch.PrunedRounds = append(ch.PrunedRounds, next.RoundNumber-keep)
	}

	if newTerm {
		term := itr.FromRound(next)
		ch.State.CurrentTermNumber = next.TermNumber
		ch.Terms = append(ch.Terms, term)
		ch.emit(TermChanged{
			Term:             term.Term,
			FirstRoundNumber: term.FirstRoundNumber,
			Miners:           term.Miners,
		})
		e.log.Info("New term", "term", term.Term, "round", term.FirstRoundNumber, "miners", len(term.Miners))
	} else {
		e.log.Debug("New round", "round", next.RoundNumber, "term", next.TermNumber)
	}
	return nil
}

func earliestMiningTime(r *inter.Round) (inter.Timestamp, bool) {
	var (
		earliest inter.Timestamp
		found    bool
	)
	for _, m := range r.Miners {
		if len(m.ActualMiningTimes) == 0 {
			continue
		}
		if t := m.ActualMiningTimes[0]; !found || t < earliest {
			earliest, found = t, true
		}
	}
	return earliest, found
}

// countTinyBlocks moves the continuous production counter past the block of
// sender. It runs on the state after the transaction. The block which opens
// a round restarts the count, as its producer is granted a fresh allowance of
// tiny blocks before the round starts.
func (e *Engine) countTinyBlocks(r Reader, ch *Changes, sender string, terminating bool) error {
	current, err := r.GetRound(ch.State.CurrentRoundNumber)
	if err != nil {
		return err
	}
	if current.Empty() {
		return ErrNotInitialized
	}
	status, max, err := e.maximumBlocksCount(r, current)
	if err != nil {
		return err
	}

	counter := &ch.State.TinyBlocks
	if counter.Pubkey == sender && !terminating {
		counter.BlocksCount--
	} else {
		counter.Pubkey = sender
		counter.BlocksCount = int64(max) - 1
	}

	severe := status == timeslot.Severe
	if severe != ch.State.PreviousBlockInSevereStatus {
		ch.emit(MiningStatusChanged{Status: status, RoundNumber: current.RoundNumber})
		if severe {
			e.log.Warn("Mining status is severe", "round", current.RoundNumber, "lib_round", current.ConfirmedIrreversibleBlockRoundNumber)
		} else {
			e.log.Info("Mining status recovered", "status", status, "round", current.RoundNumber)
		}
	}
	ch.State.PreviousBlockInSevereStatus = severe
	return nil
}
