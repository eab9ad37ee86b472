// Package consensus assembles the DPoS consensus engine: it tells miners
// what to produce and when, builds and validates the consensus extra-data of
// block headers, and turns consensus transactions into state changes.
//
// The engine holds no mutable state. Every operation reads a Reader
// snapshot; state changes are returned as Changes for the caller to commit.
package consensus

import (
	"errors"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rony4d/go-dpos/consensus/behaviour"
	"github.com/rony4d/go-dpos/consensus/transition"
	"github.com/rony4d/go-dpos/consensus/validation"
	"github.com/rony4d/go-dpos/dpos"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/electtype"
	"github.com/rony4d/go-dpos/inter/istate"
	"github.com/rony4d/go-dpos/inter/itr"
)

var (
	ErrNotInitialized = errors.New("consensus state is not initialized")
	ErrNotMiner       = errors.New("not a miner of the current round")
	ErrRoundMismatch  = errors.New("input was built for another round")
	ErrSenderMismatch = errors.New("extra data was built by another miner")
	ErrRulesMismatch  = errors.New("genesis rules don't match the engine rules")
)

// Reader is a committed snapshot of the consensus state.
type Reader interface {
	GetChainState() (istate.ChainState, error)
	// GetRound returns nil if the round is unknown or pruned.
	GetRound(n uint64) (*inter.Round, error)
	GetTermRecord(term uint64) (*itr.TermRecord, error)
	// GetMinedMiners returns the miners which produced in round n.
	GetMinedMiners(n uint64) ([]string, error)
}

// Elector reports the result of the election which starts term. It must
// answer the same for the same term, as validators ask again.
// False means there is no result and the miners stay the same.
type Elector interface {
	Victories(term uint64) ([]electtype.Victory, bool)
}

// Alerter reports consistency violations to operators.
type Alerter interface {
	Alert(msg string, fields map[string]interface{})
}

type Config struct {
	Elector         Elector
	OrderPolicy     transition.OrderPolicy
	ExtraValidators []validation.Validator
	Logger          log.Logger
	Alerter         Alerter
}

func DefaultConfig() Config {
	return Config{
		OrderPolicy: transition.FirstByteOrder{},
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	rules    dpos.Rules
	cfg      Config
	provider *behaviour.Provider
	log      log.Logger
	err      error
}

// New creates the engine. Invalid rules don't prevent construction: Err
// reports them and every request is answered with an invalid command.
func New(rules dpos.Rules, cfg Config) *Engine {
	if cfg.OrderPolicy == nil {
		cfg.OrderPolicy = transition.FirstByteOrder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New("module", "dpos")
	}
	if cfg.Alerter == nil {
		cfg.Alerter = LogAlerter{cfg.Logger}
	}
	e := &Engine{
		rules:    rules.Copy(),
		cfg:      cfg,
		provider: behaviour.ForChain(rules.Chain),
		log:      cfg.Logger,
		err:      rules.Validate(),
	}
	if e.err != nil {
		e.log.Error("Invalid consensus rules", "rules", rules.Name, "err", e.err)
	}
	return e
}

// Err returns the configuration error.
func (e *Engine) Err() error {
	return e.err
}

func (e *Engine) Rules() dpos.Rules {
	return e.rules.Copy()
}

// LogAlerter writes alerts to the log.
type LogAlerter struct {
	Logger log.Logger
}

func (a LogAlerter) Alert(msg string, fields map[string]interface{}) {
	ctx := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		ctx = append(ctx, k, v)
	}
	a.Logger.Error(msg, ctx...)
}

// snapshot is the part of the state most operations need.
type snapshot struct {
	state    istate.ChainState
	current  *inter.Round
	previous *inter.Round
}

func (e *Engine) load(r Reader) (*snapshot, error) {
	state, err := r.GetChainState()
	if err != nil {
		return nil, err
	}
	if !state.Initialized() {
		return nil, ErrNotInitialized
	}
	current, err := r.GetRound(state.CurrentRoundNumber)
	if err != nil {
		return nil, err
	}
	if current.Empty() {
		return nil, ErrNotInitialized
	}
	s := &snapshot{
		state:   state,
		current: current,
	}
	if current.RoundNumber > 1 {
		s.previous, err = r.GetRound(current.RoundNumber - 1)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}
