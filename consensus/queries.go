package consensus

import (
	"github.com/rony4d/go-dpos/inter"
)

// CurrentRound returns the current round of the snapshot.
func (e *Engine) CurrentRound(snap Reader) (*inter.Round, error) {
	s, err := e.load(snap)
	if err != nil {
		return nil, err
	}
	return s.current, nil
}

// RoundByNumber returns nil for an unknown or pruned round.
func (e *Engine) RoundByNumber(snap Reader, n uint64) (*inter.Round, error) {
	return snap.GetRound(n)
}

func (e *Engine) CurrentTermNumber(snap Reader) (uint64, error) {
	state, err := snap.GetChainState()
	if err != nil {
		return 0, err
	}
	if !state.Initialized() {
		return 0, ErrNotInitialized
	}
	return state.CurrentTermNumber, nil
}

// CurrentMinerList returns the miners of the current round by order.
func (e *Engine) CurrentMinerList(snap Reader) ([]string, error) {
	r, err := e.CurrentRound(snap)
	if err != nil {
		return nil, err
	}
	return r.Pubkeys(), nil
}

// MinerListOfTerm returns nil for an unknown term.
func (e *Engine) MinerListOfTerm(snap Reader, term uint64) ([]string, error) {
	tr, err := snap.GetTermRecord(term)
	if err != nil || tr == nil {
		return nil, err
	}
	return tr.Miners, nil
}

// IsCurrentMiner reports whether pubkey is the one expected to produce at
// now: within its own slot, before the round start as the previous extra
// block producer, or after the last slot as the extra block producer.
func (e *Engine) IsCurrentMiner(snap Reader, pubkey string, now inter.Timestamp) (bool, error) {
	r, err := e.CurrentRound(snap)
	if err != nil {
		return false, err
	}
	m := r.Miner(pubkey)
	if m == nil {
		return false, nil
	}
	interval := r.MiningInterval()
	if now >= m.ExpectedMiningTime && now < m.ExpectedMiningTime+interval {
		return true, nil
	}
	if now < r.StartTime() {
		return r.ExtraBlockProducerOfPreviousRound == pubkey, nil
	}
	if ebmt := r.ExtraBlockMiningTime(); now >= ebmt {
		return m.IsExtraBlockProducer, nil
	}
	return false, nil
}

// NextMinerPubkey returns the first miner whose slot starts after now, or the
// extra block producer once every slot started.
func (e *Engine) NextMinerPubkey(snap Reader, now inter.Timestamp) (string, error) {
	r, err := e.CurrentRound(snap)
	if err != nil {
		return "", err
	}
	for _, m := range r.Miners {
		if m.ExpectedMiningTime > now {
			return m.Pubkey, nil
		}
	}
	if ebp := r.ExtraBlockProducer(); ebp != nil {
		return ebp.Pubkey, nil
	}
	return r.FirstMiner().Pubkey, nil
}
