package store

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/istate"
	"github.com/rony4d/go-dpos/inter/itr"
)

// GetChainState returns the zero state of an uninitialized store.
func (s *Store) GetChainState() (istate.ChainState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var state istate.ChainState
	raw, err := s.table.State.Get(stateKey)
	if err != nil {
		return state, errors.Wrap(err, "get chain state")
	}
	if raw == nil {
		return state, nil
	}
	if err := state.UnmarshalBinary(raw); err != nil {
		return state, errors.Wrap(err, "corrupted chain state")
	}
	return state, nil
}

// GetRound returns a copy the caller may modify.
func (s *Store) GetRound(n uint64) (*inter.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.cache.Rounds.Get(n); ok {
		return c.(*inter.Round).Copy(), nil
	}
	raw, err := s.table.Rounds.Get(uintKey(n))
	if err != nil {
		return nil, errors.Wrapf(err, "get round %d", n)
	}
	if raw == nil {
		return nil, nil
	}
	r := &inter.Round{}
	if err := r.UnmarshalBinary(raw); err != nil {
		return nil, errors.Wrapf(err, "corrupted round %d", n)
	}
	s.cache.Rounds.Add(n, r, 1)
	return r.Copy(), nil
}

func (s *Store) GetTermRecord(term uint64) (*itr.TermRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := s.table.Terms.Get(uintKey(term))
	if err != nil {
		return nil, errors.Wrapf(err, "get term %d", term)
	}
	if raw == nil {
		return nil, nil
	}
	tr := &itr.TermRecord{}
	if err := rlp.DecodeBytes(raw, tr); err != nil {
		return nil, errors.Wrapf(err, "corrupted term %d", term)
	}
	return tr, nil
}

func (s *Store) GetMinedMiners(n uint64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := s.table.MinedMiners.Get(uintKey(n))
	if err != nil {
		return nil, errors.Wrapf(err, "get mined miners of round %d", n)
	}
	if raw == nil {
		return nil, nil
	}
	var pubkeys []string
	if err := rlp.DecodeBytes(raw, &pubkeys); err != nil {
		return nil, errors.Wrapf(err, "corrupted mined miners of round %d", n)
	}
	return pubkeys, nil
}

func encodeTermRecord(tr itr.TermRecord) ([]byte, error) {
	raw, err := rlp.EncodeToBytes(&tr)
	return raw, errors.Wrapf(err, "encode term %d", tr.Term)
}

func encodeMinedMiners(pubkeys []string) ([]byte, error) {
	if pubkeys == nil {
		pubkeys = []string{}
	}
	raw, err := rlp.EncodeToBytes(pubkeys)
	return raw, errors.Wrap(err, "encode mined miners")
}
