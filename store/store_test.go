package store

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-dpos/consensus"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/istate"
	"github.com/rony4d/go-dpos/inter/itr"
)

func testRound(n uint64) *inter.Round {
	start := inter.FromUnix(1000 + int64(n)*100)
	r := &inter.Round{RoundNumber: n, TermNumber: 1}
	for i := 0; i < 3; i++ {
		r.Miners = append(r.Miners, &inter.MinerInRound{
			Pubkey:               []string{"0xc001", "0xc002", "0xc003"}[i],
			Order:                uint32(i + 1),
			IsExtraBlockProducer: i == 0,
			ExpectedMiningTime:   start + inter.Timestamp(i+1)*inter.DefaultMiningInterval,
		})
	}
	return r
}

func TestStoreEmpty(t *testing.T) {
	require := require.New(t)
	s := NewMemStore()

	state, err := s.GetChainState()
	require.NoError(err)
	require.False(state.Initialized())

	r, err := s.GetRound(1)
	require.NoError(err)
	require.Nil(r)

	tr, err := s.GetTermRecord(1)
	require.NoError(err)
	require.Nil(tr)

	mined, err := s.GetMinedMiners(1)
	require.NoError(err)
	require.Nil(mined)
}

func TestStoreApply(t *testing.T) {
	require := require.New(t)
	s := NewMemStore()

	first := testRound(1)
	ch := &consensus.Changes{
		State: istate.ChainState{
			CurrentRoundNumber: 1,
			CurrentTermNumber:  1,
			TinyBlocks:         inter.TinyBlocksCounter{Pubkey: "0xc001", BlocksCount: -2},
		},
		Rounds:      []*inter.Round{first},
		Terms:       []itr.TermRecord{itr.FromRound(first)},
		MinedMiners: []consensus.MinedMiners{{RoundNumber: 1, Pubkeys: []string{"0xc002"}}},
	}
	require.NoError(s.Apply(ch))

	state, err := s.GetChainState()
	require.NoError(err)
	require.Equal(ch.State, state)

	got, err := s.GetRound(1)
	require.NoError(err)
	require.Equal(first.Hash(true), got.Hash(true))

	// callers get copies
	got.Miners[0].ProducedBlocks = 100
	again, err := s.GetRound(1)
	require.NoError(err)
	require.Zero(again.Miners[0].ProducedBlocks)

	tr, err := s.GetTermRecord(1)
	require.NoError(err)
	require.Equal(first.Pubkeys(), tr.Miners)
	require.Equal(first.StartTime(), tr.StartTime)

	mined, err := s.GetMinedMiners(1)
	require.NoError(err)
	require.Equal([]string{"0xc002"}, mined)
}

func TestStorePruning(t *testing.T) {
	require := require.New(t)
	s := NewMemStore()

	for n := uint64(1); n <= 3; n++ {
		require.NoError(s.Apply(&consensus.Changes{
			State:       istate.ChainState{CurrentRoundNumber: n, CurrentTermNumber: 1},
			Rounds:      []*inter.Round{testRound(n)},
			MinedMiners: []consensus.MinedMiners{{RoundNumber: n, Pubkeys: []string{"0xc001"}}},
		}))
	}
	require.NoError(s.Apply(&consensus.Changes{
		State:        istate.ChainState{CurrentRoundNumber: 4, CurrentTermNumber: 1},
		Rounds:       []*inter.Round{testRound(4)},
		PrunedRounds: []uint64{1, 2},
	}))

	for n, exists := range map[uint64]bool{1: false, 2: false, 3: true, 4: true} {
		r, err := s.GetRound(n)
		require.NoError(err)
		require.Equal(exists, r != nil, n)
	}
	mined, err := s.GetMinedMiners(2)
	require.NoError(err)
	require.Nil(mined)
	mined, err = s.GetMinedMiners(3)
	require.NoError(err)
	require.Equal([]string{"0xc001"}, mined)
}

func TestStoreCorrupted(t *testing.T) {
	require := require.New(t)
	db := memorydb.New()
	s := New(db, DefaultStoreConfig())

	require.NoError(db.Put(append([]byte("r"), uintKey(7)...), []byte{0xff, 0x01}))
	_, err := s.GetRound(7)
	require.Error(err)

	require.NoError(db.Put(append([]byte("s"), stateKey...), []byte{0xff}))
	_, err = s.GetChainState()
	require.Error(err)
}

func TestStoreReopen(t *testing.T) {
	require := require.New(t)
	dir, err := ioutil.TempDir("", "dpos-store")
	require.NoError(err)
	defer os.RemoveAll(dir)

	s, err := OpenDB(dir, DefaultStoreConfig())
	require.NoError(err)
	require.NoError(s.Apply(&consensus.Changes{
		State:  istate.ChainState{CurrentRoundNumber: 1, CurrentTermNumber: 1},
		Rounds: []*inter.Round{testRound(1)},
	}))
	require.NoError(s.Close())

	s, err = OpenDB(dir, DefaultStoreConfig())
	require.NoError(err)
	defer s.Close()
	r, err := s.GetRound(1)
	require.NoError(err)
	require.Equal(testRound(1).Hash(true), r.Hash(true))
}
