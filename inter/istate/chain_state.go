// Package istate holds the global consensus pointers which change with
// blocks rather than with rounds: the current round and term, the chain start
// and the continuous-production counter.
package istate

import (
	"crypto/sha256"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/utils/cser"
)

type ChainState struct {
	CurrentRoundNumber uint64
	CurrentTermNumber  uint64

	// BlockchainStartTimestamp is rewritten once, when round 1 ends, from the
	// first actual mining time of round 1.
	BlockchainStartTimestamp inter.Timestamp

	TinyBlocks                  inter.TinyBlocksCounter
	PreviousBlockInSevereStatus bool

	LastBlock idx.Block
}

func (s ChainState) Copy() ChainState {
	return s
}

func (s ChainState) Initialized() bool {
	return s.CurrentRoundNumber != 0
}

type hashable struct {
	CurrentRoundNumber       uint64
	CurrentTermNumber        uint64
	BlockchainStartTimestamp inter.Timestamp
	TinyBlocksPubkey         string
	TinyBlocksCount          uint64
	PreviousSevere           bool
	LastBlock                idx.Block
}

// Hash is sha256 of the RLP form. The signed counter is hashed as its two's
// complement.
func (s ChainState) Hash() hash.Hash {
	hasher := sha256.New()
	err := rlp.Encode(hasher, &hashable{
		CurrentRoundNumber:       s.CurrentRoundNumber,
		CurrentTermNumber:        s.CurrentTermNumber,
		BlockchainStartTimestamp: s.BlockchainStartTimestamp,
		TinyBlocksPubkey:         s.TinyBlocks.Pubkey,
		TinyBlocksCount:          uint64(s.TinyBlocks.BlocksCount),
		PreviousSevere:           s.PreviousBlockInSevereStatus,
		LastBlock:                s.LastBlock,
	})
	if err != nil {
		panic("can't hash: " + err.Error())
	}
	return hash.BytesToHash(hasher.Sum(nil))
}

func (s *ChainState) MarshalCSER(w *cser.Writer) error {
	w.U64(s.CurrentRoundNumber)
	w.U64(s.CurrentTermNumber)
	w.U64(uint64(s.BlockchainStartTimestamp))
	w.String(s.TinyBlocks.Pubkey)
	w.I64(s.TinyBlocks.BlocksCount)
	w.Bool(s.PreviousBlockInSevereStatus)
	w.U64(uint64(s.LastBlock))
	return nil
}

func (s *ChainState) UnmarshalCSER(r *cser.Reader) error {
	s.CurrentRoundNumber = r.U64()
	s.CurrentTermNumber = r.U64()
	s.BlockchainStartTimestamp = inter.Timestamp(r.U64())
	s.TinyBlocks.Pubkey = r.String(inter.ProtocolMaxPubkeyLen)
	s.TinyBlocks.BlocksCount = r.I64()
	s.PreviousBlockInSevereStatus = r.Bool()
	s.LastBlock = idx.Block(r.U64())
	return nil
}

func (s *ChainState) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(s.MarshalCSER)
}

func (s *ChainState) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, s.UnmarshalCSER)
}
