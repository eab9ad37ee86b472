package consensus

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-dpos/consensus/timeslot"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/istate"
	"github.com/rony4d/go-dpos/inter/itr"
)

// MinedMiners is the list of miners which produced in a finished round.
type MinedMiners struct {
	RoundNumber uint64
	Pubkeys     []string
}

// Changes is the state delta of one block. Rounds and Terms are puts,
// PrunedRounds are deletes of both the round and its mined-miner list.
type Changes struct {
	State        istate.ChainState
	Rounds       []*inter.Round
	PrunedRounds []uint64
	Terms        []itr.TermRecord
	MinedMiners  []MinedMiners
	Events       []Event
}

func (ch *Changes) putRound(r *inter.Round) {
	for i, exist := range ch.Rounds {
		if exist.RoundNumber == r.RoundNumber {
			ch.Rounds[i] = r
			return
		}
	}
	ch.Rounds = append(ch.Rounds, r)
}

func (ch *Changes) emit(e Event) {
	ch.Events = append(ch.Events, e)
}

// Event is a notable consequence of a block, for collaborators.
type Event interface {
	EventName() string
}

type IrreversibleBlockFound struct {
	Height      idx.Block
	RoundNumber uint64
}

func (IrreversibleBlockFound) EventName() string { return "IrreversibleBlockFound" }

type TermChanged struct {
	Term             uint64
	FirstRoundNumber uint64
	Miners           []string
}

func (TermChanged) EventName() string { return "TermChanged" }

type MiningStatusChanged struct {
	Status      timeslot.MiningStatus
	RoundNumber uint64
}

func (MiningStatusChanged) EventName() string { return "MiningStatusChanged" }

// overlay reads uncommitted changes on top of a snapshot.
type overlay struct {
	Reader
	ch *Changes
}

func (o overlay) GetChainState() (istate.ChainState, error) {
	return o.ch.State, nil
}

func (o overlay) GetRound(n uint64) (*inter.Round, error) {
	for _, r := range o.ch.Rounds {
		if r.RoundNumber == n {
			return r, nil
		}
	}
	for _, pruned := range o.ch.PrunedRounds {
		if pruned == n {
			return nil, nil
		}
	}
	return o.Reader.GetRound(n)
}

func (o overlay) GetTermRecord(term uint64) (*itr.TermRecord, error) {
	for i := range o.ch.Terms {
		if o.ch.Terms[i].Term == term {
			tr := o.ch.Terms[i].Copy()
			return &tr, nil
		}
	}
	return o.Reader.GetTermRecord(term)
}

func (o overlay) GetMinedMiners(n uint64) ([]string, error) {
	for _, mm := range o.ch.MinedMiners {
		if mm.RoundNumber == n {
			return mm.Pubkeys, nil
		}
	}
	return o.Reader.GetMinedMiners(n)
}
