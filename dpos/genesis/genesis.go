// Package genesis defines the initial state of a DPoS network: the rules it
// runs with, the miners of the first term and the moment the chain starts.
//
// Key concepts:
//   - Rules: the consensus parameters, see package dpos
//   - Miners: the miners of term 1, placed by first key byte
//   - StartTime: round 1 is scheduled from it
//
// Usage:
//
//	g := genesis.FakeGenesis(5, genesis.FakeGenesisTime, dpos.FakeNetRules())
//	first, err := g.FirstRound()
//
// Fake genesis is used for tests and for the simulate command.
package genesis

import (
	"crypto/ecdsa"
	"errors"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-dpos/consensus/transition"
	"github.com/rony4d/go-dpos/dpos"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/electtype"
	"github.com/rony4d/go-dpos/inter/minerpk"
)

// FakeGenesisTime is the default start of fake networks.
var FakeGenesisTime = inter.Timestamp(1608600000 * time.Second)

var ErrNoMiners = errors.New("genesis has no miners")

// Genesis is everything a node needs to agree on round 1.
type Genesis struct {
	Rules     dpos.Rules
	Miners    []minerpk.PubKey
	StartTime inter.Timestamp
}

// Validate checks the rules and the miner list.
func (g Genesis) Validate() error {
	if err := g.Rules.Validate(); err != nil {
		return err
	}
	if len(g.Miners) == 0 {
		return ErrNoMiners
	}
	return nil
}

// FirstRound schedules round 1 of term 1. The first miner gets its slot one
// mining interval after StartTime.
//
// Returns:
//   - *inter.Round: round 1, ordered by first key byte
//   - error: invalid rules or an empty miner list
func (g Genesis) FirstRound() (*inter.Round, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	victories := make([]electtype.Victory, len(g.Miners))
	for i, pk := range g.Miners {
		victories[i] = electtype.Victory{PubKey: pk}
	}
	miners := transition.FirstByteOrder{}.Order(victories)
	r, err := transition.FirstRoundOfNewTerm(miners, g.Rules.Mining.Interval, g.StartTime, 0, 0)
	if err != nil {
		return nil, err
	}
	r.BlockchainAge = 1
	return r, nil
}

// FakeGenesis creates a genesis with n deterministic miners.
//
// Parameters:
//   - n: the number of miners, keys are FakeKey(1)...FakeKey(n)
//   - start: the chain start
//   - rules: the network rules
func FakeGenesis(n int, start inter.Timestamp, rules dpos.Rules) Genesis {
	g := Genesis{
		Rules:     rules,
		StartTime: start,
		Miners:    make([]minerpk.PubKey, n),
	}
	for i := range g.Miners {
		g.Miners[i] = FakeMiner(i + 1)
	}
	return g
}

// FakeMiner returns the public key of FakeKey(n).
func FakeMiner(n int) minerpk.PubKey {
	return minerpk.FromECDSA(&FakeKey(n).PublicKey)
}

// FakeKey generates a deterministic fake private key for testing purposes.
// Given the same n, it always generates the same key. The key material is
// read from a seeded source directly, ecdsa.GenerateKey may consume a random
// extra byte from the reader.
//
// Panics:
//   - If no valid key is found (should never happen in practice)
func FakeKey(n int) *ecdsa.PrivateKey {
	reader := rand.New(rand.NewSource(int64(n)))

	seed := make([]byte, 32)
	for attempt := 0; attempt < 16; attempt++ {
		reader.Read(seed)
		key, err := crypto.ToECDSA(seed)
		if err == nil {
			return key
		}
	}
	panic("can't generate fake key")
}
