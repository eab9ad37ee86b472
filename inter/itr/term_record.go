// Package itr (inter-term records) defines the snapshot written when a term
// starts. Collaborators that settle per-term rewards read it.
package itr

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-dpos/inter"
)

type TermRecord struct {
	Term             uint64
	FirstRoundNumber uint64
	StartTime        inter.Timestamp
	MiningInterval   inter.Timestamp
	// Miners in the order of the term's first round.
	Miners []string
}

// Hash of the record.
func (tr TermRecord) Hash() hash.Hash {
	parts := [][]byte{
		bigendian.Uint64ToBytes(tr.Term),
		bigendian.Uint64ToBytes(tr.FirstRoundNumber),
		tr.StartTime.Bytes(),
		tr.MiningInterval.Bytes(),
	}
	for _, m := range tr.Miners {
		parts = append(parts, []byte(m))
	}
	return hash.Of(parts...)
}

func (tr TermRecord) Copy() TermRecord {
	cp := tr
	cp.Miners = append([]string(nil), tr.Miners...)
	return cp
}

// FromRound records the first round of a term.
func FromRound(r *inter.Round) TermRecord {
	return TermRecord{
		Term:             r.TermNumber,
		FirstRoundNumber: r.RoundNumber,
		StartTime:        r.StartTime(),
		MiningInterval:   r.MiningInterval(),
		Miners:           r.Pubkeys(),
	}
}
