package inter

import (
	"crypto/sha256"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/rlp"
)

type checkableMiner struct {
	Pubkey                         string
	Order                          uint32
	IsExtraBlockProducer           bool
	ExpectedMiningTime             Timestamp
	InValue                        hash.Hash
	PreviousInValue                hash.Hash
	OutValue                       hash.Hash
	Signature                      hash.Hash
	ProducedBlocks                 uint64
	MissedTimeSlots                uint64
	ProducedTinyBlocks             uint64
	SupposedOrderOfNextRound       uint32
	FinalOrderOfNextRound          uint32
	ImpliedIrreversibleBlockHeight idx.Block
}

type checkableRound struct {
	RoundNumber   uint64
	TermNumber    uint64
	BlockchainAge uint64
	Miners        []checkableMiner
}

// Hash is the comparison hash of the round: every miner (sorted by pubkey)
// without actual mining times, plus round and term numbers.
// PreviousInValue is zeroed unless withPreviousInValue is set.
func (r *Round) Hash(withPreviousInValue bool) hash.Hash {
	c := checkableRound{
		RoundNumber:   r.RoundNumber,
		TermNumber:    r.TermNumber,
		BlockchainAge: r.BlockchainAge,
		Miners:        make([]checkableMiner, len(r.Miners)),
	}
	for i, m := range r.Miners {
		cm := checkableMiner{
			Pubkey:                         m.Pubkey,
			Order:                          m.Order,
			IsExtraBlockProducer:           m.IsExtraBlockProducer,
			ExpectedMiningTime:             m.ExpectedMiningTime,
			InValue:                        m.InValue,
			OutValue:                       m.OutValue,
			Signature:                      m.Signature,
			ProducedBlocks:                 m.ProducedBlocks,
			MissedTimeSlots:                m.MissedTimeSlots,
			ProducedTinyBlocks:             m.ProducedTinyBlocks,
			SupposedOrderOfNextRound:       m.SupposedOrderOfNextRound,
			FinalOrderOfNextRound:          m.FinalOrderOfNextRound,
			ImpliedIrreversibleBlockHeight: m.ImpliedIrreversibleBlockHeight,
		}
		if withPreviousInValue {
			cm.PreviousInValue = m.PreviousInValue
		}
		c.Miners[i] = cm
	}
	sort.Slice(c.Miners, func(i, j int) bool {
		return c.Miners[i].Pubkey < c.Miners[j].Pubkey
	})

	hasher := sha256.New()
	if err := rlp.Encode(hasher, &c); err != nil {
		panic("can't hash: " + err.Error())
	}
	return hash.BytesToHash(hasher.Sum(nil))
}
