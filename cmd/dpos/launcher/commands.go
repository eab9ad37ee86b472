package launcher

import (
	"fmt"
	"io"

	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-dpos/consensus"
	"github.com/rony4d/go-dpos/integration"
	"github.com/rony4d/go-dpos/store"
)

var errDataDirInUse = errors.New("datadir already holds a chain")

var (
	simulateCommand = cli.Command{
		Action:    simulate,
		Name:      "simulate",
		Usage:     "Run an in-process network until a round is reached",
		ArgsUsage: "",
		Description: `
Produces blocks with every miner of the network preset, on a simulated clock.
Every block passes both validations before the next one is scheduled. With
--datadir the chain is written to disk and can be read back with inspect.`,
	}
	inspectCommand = cli.Command{
		Action:    inspect,
		Name:      "inspect",
		Usage:     "Print the current round and term of a datadir",
		ArgsUsage: "",
	}
	dumpConfigCommand = cli.Command{
		Action:    dumpConfig,
		Name:      "dumpconfig",
		Usage:     "Show configuration values",
		ArgsUsage: "",
		Description: `The dumpconfig command shows configuration values.`,
	}
)

func openStore(cfg Config) (*store.Store, error) {
	storeCfg := store.StoreConfig{RoundsCacheSize: cfg.Node.RoundsCache}
	if cfg.Node.DataDir == "" {
		return store.New(memorydb.New(), storeCfg), nil
	}
	return store.OpenDB(cfg.Node.DataDir, storeCfg)
}

func simulate(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	preset, err := cfg.Preset()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	state, err := st.GetChainState()
	if err != nil {
		return err
	}
	if state.Initialized() {
		return errDataDirInUse
	}

	alerter, err := NewSentryAlerter(cfg.Alert)
	if err != nil {
		return err
	}
	engineCfg := consensus.DefaultConfig()
	engineCfg.Alerter = alerter
	engineCfg.Logger = log.New("module", "dpos", "network", preset.Name)

	network, err := integration.NewNetwork(preset, st, engineCfg)
	if err != nil {
		return err
	}
	out := ctx.App.Writer
	results, err := network.Run(cfg.Network.Rounds, func(res integration.StepResult) {
		fmt.Fprintln(out, res)
		for _, ev := range res.Events {
			fmt.Fprintf(out, "  %s %+v\n", ev.EventName(), ev)
		}
	})
	if err != nil {
		return err
	}
	log.Info("Simulation finished", "blocks", len(results), "round", cfg.Network.Rounds, "clock", network.Clock())
	return nil
}

func inspect(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	if cfg.Node.DataDir == "" {
		return errors.New("inspect needs --datadir")
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := consensus.New(cfg.Rules, consensus.DefaultConfig())
	if err := engine.Err(); err != nil {
		return err
	}
	return printChain(ctx.App.Writer, engine, st)
}

func printChain(w io.Writer, engine *consensus.Engine, st *store.Store) error {
	round, err := engine.CurrentRound(st)
	if err != nil {
		return err
	}
	state, err := st.GetChainState()
	if err != nil {
		return err
	}
	term, err := st.GetTermRecord(state.CurrentTermNumber)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "round %d, term %d, chain started at %s\n", round.RoundNumber, round.TermNumber, state.BlockchainStartTimestamp)
	fmt.Fprintf(w, "last irreversible block #%d (round %d)\n", round.ConfirmedIrreversibleBlockHeight, round.ConfirmedIrreversibleBlockRoundNumber)
	if term != nil {
		fmt.Fprintf(w, "term %d started at round %d, %s\n", term.Term, term.FirstRoundNumber, term.StartTime)
	}
	for _, m := range round.Miners {
		ebp := ""
		if m.IsExtraBlockProducer {
			ebp = " (extra block)"
		}
		fmt.Fprintf(w, "  %2d %s expected %s produced %d missed %d%s\n",
			m.Order, m.Pubkey, m.ExpectedMiningTime, m.ProducedBlocks, m.MissedTimeSlots, ebp)
	}
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
