package integration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-dpos/consensus"
	"github.com/rony4d/go-dpos/dpos/genesis"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/minerpk"
	"github.com/rony4d/go-dpos/store"
)

// checkProgress asserts the round and LIB invariants over a run.
func checkProgress(t *testing.T, results []StepResult) {
	require := require.New(t)

	var (
		round  = uint64(1)
		term   = uint64(1)
		lib    uint64
		height uint64
	)
	for _, res := range results {
		require.Equal(height+1, uint64(res.Height), "heights are consecutive")
		height = uint64(res.Height)

		if res.Behaviour.Terminates() {
			require.Equal(round+1, res.RoundNumber, res.String())
		} else {
			require.Equal(round, res.RoundNumber, res.String())
		}
		if res.Behaviour == inter.NextTerm {
			require.Equal(term+1, res.TermNumber, res.String())
		} else {
			require.Equal(term, res.TermNumber, res.String())
		}
		round, term = res.RoundNumber, res.TermNumber

		for _, e := range res.Events {
			if found, ok := e.(consensus.IrreversibleBlockFound); ok {
				require.Greater(uint64(found.Height), lib)
				require.Less(uint64(found.Height), height)
				lib = uint64(found.Height)
			}
		}
	}
}

func countBehaviours(results []StepResult) map[inter.Behaviour]int {
	res := map[inter.Behaviour]int{}
	for _, r := range results {
		res[r.Behaviour]++
	}
	return res
}

func TestSingleNodeNetwork(t *testing.T) {
	require := require.New(t)

	cfg := SingleNodePreset()
	// a term period shorter than a round must not change terms
	cfg.Rules.Terms.Period = cfg.Rules.Mining.Interval
	n, err := NewMemNetwork(cfg)
	require.NoError(err)

	results, err := n.Run(8, nil)
	require.NoError(err)
	checkProgress(t, results)

	counts := countBehaviours(results)
	require.Zero(counts[inter.NextTerm])
	require.Equal(7, counts[inter.NextRound])
	require.Equal(7, counts[inter.UpdateValue])

	miner := genesis.FakeMiner(1).String()
	for _, res := range results {
		require.Equal(miner, res.Miner)
	}
}

func TestSmallNetwork(t *testing.T) {
	require := require.New(t)

	n, err := NewMemNetwork(SmallNetPreset())
	require.NoError(err)

	results, err := n.Run(14, nil)
	require.NoError(err)
	checkProgress(t, results)

	counts := countBehaviours(results)
	require.NotZero(counts[inter.NextTerm], "term period elapsed")
	require.NotZero(counts[inter.TinyBlock])

	producers := map[string]bool{}
	libFound := false
	for _, res := range results {
		producers[res.Miner] = true
		for _, e := range res.Events {
			if _, ok := e.(consensus.IrreversibleBlockFound); ok {
				libFound = true
			}
		}
	}
	require.Len(producers, 5)
	require.True(libFound)

	term, err := n.Engine.CurrentTermNumber(n.Store)
	require.NoError(err)
	require.Greater(term, uint64(1))
	miners, err := n.Engine.MinerListOfTerm(n.Store, term)
	require.NoError(err)
	require.Len(miners, 5)
}

func TestSideChainNetwork(t *testing.T) {
	require := require.New(t)

	n, err := NewMemNetwork(SideChainPreset())
	require.NoError(err)

	results, err := n.Run(10, nil)
	require.NoError(err)
	checkProgress(t, results)
	require.Zero(countBehaviours(results)[inter.NextTerm])
}

func TestNetworkIsDeterministic(t *testing.T) {
	require := require.New(t)

	run := func() []StepResult {
		n, err := NewMemNetwork(SmallNetPreset())
		require.NoError(err)
		results, err := n.Run(6, nil)
		require.NoError(err)
		return results
	}
	require.Equal(run(), run())
}

func TestRotatingElection(t *testing.T) {
	require := require.New(t)

	cfg := SmallNetPreset()
	candidates := make([]minerpk.PubKey, 7)
	for i := range candidates {
		candidates[i] = genesis.FakeMiner(i + 1)
	}
	engineCfg := consensus.DefaultConfig()
	engineCfg.Elector = &RotatingElector{Candidates: candidates, Size: 5}

	n, err := NewNetwork(cfg, store.NewMemStore(), engineCfg, candidates...)
	require.NoError(err)

	var terms []consensus.TermChanged
	_, err = n.Run(14, func(res StepResult) {
		for _, e := range res.Events {
			if tc, ok := e.(consensus.TermChanged); ok {
				terms = append(terms, tc)
			}
		}
	})
	require.NoError(err)
	require.NotEmpty(terms)

	// the first rotation drops FakeMiner(1) and elects FakeMiner(6)
	miners, err := n.Engine.MinerListOfTerm(n.Store, 2)
	require.NoError(err)
	require.Len(miners, 5)
	require.NotContains(miners, candidates[0].String())
	require.Contains(miners, candidates[5].String())
	require.ElementsMatch(miners, terms[0].Miners)
}

func TestRotatingElectorAnswersPerTerm(t *testing.T) {
	require := require.New(t)

	candidates := make([]minerpk.PubKey, 3)
	for i := range candidates {
		candidates[i] = genesis.FakeMiner(i + 1)
	}
	e := &RotatingElector{Candidates: candidates, Size: 2}

	first, ok := e.Victories(2)
	require.True(ok)
	again, ok := e.Victories(2)
	require.True(ok)
	require.Equal(first, again)
	require.Equal(candidates[1].String(), first[0].PubKey.String())
	require.Equal(candidates[2].String(), first[1].PubKey.String())

	wrapped, ok := e.Victories(3)
	require.True(ok)
	require.Equal(candidates[2].String(), wrapped[0].PubKey.String())
	require.Equal(candidates[0].String(), wrapped[1].PubKey.String())

	_, ok = (&RotatingElector{Size: 2}).Victories(2)
	require.False(ok)
}
