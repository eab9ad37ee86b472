package integration

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rony4d/go-dpos/consensus"
	"github.com/rony4d/go-dpos/dpos/genesis"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/minerpk"
	"github.com/rony4d/go-dpos/store"
)

var (
	// ErrStalled is returned when no miner gets a producible command for
	// MaxIdlePolls polls in a row.
	ErrStalled = errors.New("network stalled")
	// ErrRejected is returned when a block fails validation.
	ErrRejected = errors.New("block rejected")
)

// StepResult describes one produced block.
type StepResult struct {
	Height    idx.Block
	Time      inter.Timestamp
	Miner     string
	Behaviour inter.Behaviour
	// RoundNumber and TermNumber are read after the block.
	RoundNumber uint64
	TermNumber  uint64
	Events      []consensus.Event
}

func (r StepResult) String() string {
	return fmt.Sprintf("#%d %s round=%d term=%d %s by %s", r.Height, r.Time, r.RoundNumber, r.TermNumber, r.Behaviour, r.Miner)
}

// Network is a set of in-process miners sharing one engine and one store.
// It is not safe for concurrent use.
type Network struct {
	cfg    PresetConfig
	Engine *consensus.Engine
	Store  *store.Store

	// miners are all keys asked for commands, elected or not.
	miners    []string
	scheduled map[string]inter.ConsensusCommand

	clock  inter.Timestamp
	height idx.Block

	log log.Logger
}

// NewNetwork initializes st from the preset genesis. Extra candidates are
// miners which aren't in the genesis but may be elected later.
func NewNetwork(cfg PresetConfig, st *store.Store, engineCfg consensus.Config, candidates ...minerpk.PubKey) (*Network, error) {
	g := genesis.FakeGenesis(cfg.Miners, cfg.StartTime, cfg.Rules)
	if engineCfg.Logger == nil {
		engineCfg.Logger = log.New("module", "dpos", "network", cfg.Name)
	}
	engine := consensus.New(cfg.Rules, engineCfg)
	if err := engine.Err(); err != nil {
		return nil, err
	}
	ch, err := engine.Initialize(g)
	if err != nil {
		return nil, err
	}
	if err := st.Apply(ch); err != nil {
		return nil, err
	}

	n := &Network{
		cfg:    cfg,
		Engine: engine,
		Store:  st,
		clock:  cfg.StartTime,
		log:    engineCfg.Logger,
	}
	seen := map[string]bool{}
	for _, pk := range append(append([]minerpk.PubKey{}, g.Miners...), candidates...) {
		if s := pk.String(); !seen[s] {
			seen[s] = true
			n.miners = append(n.miners, s)
		}
	}
	n.reschedule()
	return n, nil
}

// NewMemNetwork runs the preset over a memory store.
func NewMemNetwork(cfg PresetConfig, candidates ...minerpk.PubKey) (*Network, error) {
	return NewNetwork(cfg, store.NewMemStore(), consensus.DefaultConfig(), candidates...)
}

func (n *Network) Clock() inter.Timestamp {
	return n.clock
}

func (n *Network) Height() idx.Block {
	return n.height
}

// InValue is the secret pubkey commits to in round. It is derived from both
// so that every run of a network is reproducible.
func InValue(pubkey string, round uint64) hash.Hash {
	return hash.Of([]byte(pubkey), bigendian.Uint64ToBytes(round))
}

// reschedule asks every miner for a new command, after the state changed.
func (n *Network) reschedule() {
	n.scheduled = make(map[string]inter.ConsensusCommand, len(n.miners))
	n.poll()
}

// poll asks again the miners which have nothing scheduled. A producible
// command stays scheduled until the state changes.
func (n *Network) poll() {
	for _, pk := range n.miners {
		if cmd, ok := n.scheduled[pk]; ok && !cmd.IsInvalid() {
			continue
		}
		n.scheduled[pk] = n.Engine.GetConsensusCommand(n.Store, pk, n.clock)
	}
}

// next returns the miner with the earliest scheduled block. Ties go to the
// miner asked first.
func (n *Network) next() (string, inter.ConsensusCommand, bool) {
	var (
		best  string
		found inter.ConsensusCommand
		ok    bool
	)
	for _, pk := range n.miners {
		cmd := n.scheduled[pk]
		if cmd.IsInvalid() {
			continue
		}
		if !ok || cmd.ArrangedMiningTime < found.ArrangedMiningTime {
			best, found, ok = pk, cmd, true
		}
	}
	return best, found, ok
}

// Step moves the clock to the next scheduled block and produces it.
func (n *Network) Step() (*StepResult, error) {
	for polls := 0; polls <= n.cfg.MaxIdlePolls; polls++ {
		pk, cmd, ok := n.next()
		if ok && cmd.ArrangedMiningTime <= n.clock+n.cfg.PollInterval {
			n.clock = inter.MaxOf(n.clock, cmd.ArrangedMiningTime)
			return n.produce(pk, cmd)
		}
		n.clock += n.cfg.PollInterval
		n.poll()
	}
	return nil, ErrStalled
}

func (n *Network) produce(pubkey string, cmd inter.ConsensusCommand) (*StepResult, error) {
	current, err := n.Engine.CurrentRound(n.Store)
	if err != nil {
		return nil, err
	}
	block := inter.BlockContext{
		Height: n.height + 1,
		Time:   n.clock,
		Sender: pubkey,
	}
	trigger := inter.TriggerInformation{
		Pubkey:    pubkey,
		Behaviour: cmd.Behaviour,
		InValue:   InValue(pubkey, current.RoundNumber),
	}
	if current.RoundNumber > 1 {
		trigger.PreviousInValue = InValue(pubkey, current.RoundNumber-1)
	}

	extra, err := n.Engine.GetConsensusExtraData(n.Store, block, trigger)
	if err != nil {
		return nil, fmt.Errorf("extra data of %s: %w", cmd.Behaviour, err)
	}
	if res := n.Engine.ValidateConsensusBeforeExecution(n.Store, extra); !res.Success {
		return nil, fmt.Errorf("%w before execution: %s", ErrRejected, res.Message)
	}
	txs, err := n.Engine.GenerateConsensusTransactions(n.Store, block, extra)
	if err != nil {
		return nil, err
	}

	res := &StepResult{
		Height:    block.Height,
		Time:      block.Time,
		Miner:     pubkey,
		Behaviour: cmd.Behaviour,
	}
	for _, tx := range txs {
		ch, err := n.Engine.Process(n.Store, block, tx)
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", tx.Method, err)
		}
		if err := n.Store.Apply(ch); err != nil {
			return nil, err
		}
		res.Events = append(res.Events, ch.Events...)
	}
	if after := n.Engine.ValidateConsensusAfterExecution(n.Store, extra); !after.Success {
		return nil, fmt.Errorf("%w after execution: %s", ErrRejected, after.Message)
	}

	state, err := n.Store.GetChainState()
	if err != nil {
		return nil, err
	}
	res.RoundNumber = state.CurrentRoundNumber
	res.TermNumber = state.CurrentTermNumber

	n.height = block.Height
	n.reschedule()
	n.log.Debug("Block produced", "height", res.Height, "miner", pubkey, "behaviour", res.Behaviour, "round", res.RoundNumber)
	return res, nil
}

// Run produces blocks until the network reaches round, calling observe for
// every block if it isn't nil.
func (n *Network) Run(round uint64, observe func(StepResult)) ([]StepResult, error) {
	var results []StepResult
	for {
		state, err := n.Store.GetChainState()
		if err != nil {
			return results, err
		}
		if state.CurrentRoundNumber >= round {
			return results, nil
		}
		res, err := n.Step()
		if err != nil {
			return results, err
		}
		results = append(results, *res)
		if observe != nil {
			observe(*res)
		}
	}
}
