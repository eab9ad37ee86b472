// Package store persists the consensus state over a lachesis-base kvdb.Store
// and serves it to the engine as a consensus.Reader.
package store

import (
	"sync"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/table"
	"github.com/Fantom-foundation/lachesis-base/utils/wlru"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/rony4d/go-dpos/consensus"
)

var stateKey = []byte("c")

// Store is safe for concurrent use. Readers never see a partially applied
// block.
type Store struct {
	cfg StoreConfig

	mainDB kvdb.Store
	table  struct {
		Rounds      kvdb.Store `table:"r"`
		Terms       kvdb.Store `table:"t"`
		MinedMiners kvdb.Store `table:"m"`
		State       kvdb.Store `table:"s"`
	}

	cache struct {
		Rounds *wlru.Cache `cache:"-"`
	}

	mu  sync.RWMutex
	log log.Logger
}

type StoreConfig struct {
	// RoundsCacheSize is the number of decoded rounds kept in memory.
	RoundsCacheSize int
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		RoundsCacheSize: 64,
	}
}

func LiteStoreConfig() StoreConfig {
	return StoreConfig{
		RoundsCacheSize: 4,
	}
}

// New creates the store over db.
func New(db kvdb.Store, cfg StoreConfig) *Store {
	s := &Store{
		cfg:    cfg,
		mainDB: db,
		log:    log.New("module", "dpos-store"),
	}
	table.MigrateTables(&s.table, s.mainDB)
	s.initCache()
	return s
}

// NewMemStore creates a store over a memory database.
func NewMemStore() *Store {
	return New(memorydb.New(), LiteStoreConfig())
}

func (s *Store) initCache() {
	size := s.cfg.RoundsCacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := wlru.New(uint(size), size)
	if err != nil {
		s.log.Crit("Failed to create rounds cache", "err", err)
	}
	s.cache.Rounds = cache
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Rounds.Purge()
	table.MigrateTables(&s.table, nil)
	return s.mainDB.Close()
}

func uintKey(n uint64) []byte {
	return bigendian.Uint64ToBytes(n)
}

func prefixed(prefix string, key []byte) []byte {
	return append([]byte(prefix), key...)
}

// Apply commits the changes of one block in a single batch.
func (s *Store) Apply(ch *consensus.Changes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.mainDB.NewBatch()
	defer batch.Reset()

	for _, r := range ch.Rounds {
		raw, err := r.MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "encode round %d", r.RoundNumber)
		}
		if err := batch.Put(prefixed("r", uintKey(r.RoundNumber)), raw); err != nil {
			return errors.Wrap(err, "put round")
		}
	}
	for _, n := range ch.PrunedRounds {
		if err := batch.Delete(prefixed("r", uintKey(n))); err != nil {
			return errors.Wrap(err, "prune round")
		}
		if err := batch.Delete(prefixed("m", uintKey(n))); err != nil {
			return errors.Wrap(err, "prune mined miners")
		}
	}
	for _, tr := range ch.Terms {
		raw, err := encodeTermRecord(tr)
		if err != nil {
			return err
		}
		if err := batch.Put(prefixed("t", uintKey(tr.Term)), raw); err != nil {
			return errors.Wrap(err, "put term record")
		}
	}
	for _, mm := range ch.MinedMiners {
		raw, err := encodeMinedMiners(mm.Pubkeys)
		if err != nil {
			return err
		}
		if err := batch.Put(prefixed("m", uintKey(mm.RoundNumber)), raw); err != nil {
			return errors.Wrap(err, "put mined miners")
		}
	}
	raw, err := ch.State.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "encode chain state")
	}
	if err := batch.Put(prefixed("s", stateKey), raw); err != nil {
		return errors.Wrap(err, "put chain state")
	}

	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write batch")
	}

	for _, r := range ch.Rounds {
		s.cache.Rounds.Add(r.RoundNumber, r.Copy(), 1)
	}
	for _, n := range ch.PrunedRounds {
		s.cache.Rounds.Remove(n)
	}
	return nil
}
