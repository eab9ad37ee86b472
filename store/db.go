package store

import (
	"os"
	"path/filepath"

	"github.com/Fantom-foundation/lachesis-base/kvdb/leveldb"
	"github.com/pkg/errors"
)

// DBCacheMB and DBHandles size the leveldb of a datadir.
const (
	DBCacheMB = 16
	DBHandles = 64
)

// OpenDB opens, or creates, the consensus database in datadir.
func OpenDB(datadir string, cfg StoreConfig) (*Store, error) {
	path := filepath.Join(datadir, "dpos")
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, errors.Wrap(err, "create datadir")
	}
	db, err := leveldb.New(path, DBCacheMB, DBHandles, func() error { return nil }, func() {
		_ = os.RemoveAll(path)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return New(db, cfg), nil
}
