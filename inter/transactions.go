package inter

import (
	"errors"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-dpos/utils/cser"
)

// Consensus transaction methods, one per producible behaviour.
const (
	MethodUpdateValue                = "UpdateValue"
	MethodUpdateTinyBlockInformation = "UpdateTinyBlockInformation"
	MethodNextRound                  = "NextRound"
	MethodNextTerm                   = "NextTerm"
)

var ErrUnknownMethod = errors.New("unknown consensus transaction method")

// MethodOf maps a behaviour to the transaction that applies it.
func MethodOf(b Behaviour) (string, error) {
	switch b {
	case UpdateValue:
		return MethodUpdateValue, nil
	case TinyBlock:
		return MethodUpdateTinyBlockInformation, nil
	case NextRound:
		return MethodNextRound, nil
	case NextTerm:
		return MethodNextTerm, nil
	}
	return "", ErrUnknownBehaviour
}

// ConsensusTransaction is generated by the block producer and executed by
// every node. Input is the cser encoding of the method's argument.
type ConsensusTransaction struct {
	Method string
	Input  []byte
}

// TuneOrder moves another miner's final order of the next round after an
// order conflict.
type TuneOrder struct {
	Pubkey string
	Order  uint32
}

type UpdateValueInput struct {
	OutValue                       hash.Hash
	Signature                      hash.Hash
	PreviousInValue                hash.Hash
	RoundID                        uint64
	ProducedBlocks                 uint64
	ActualMiningTime               Timestamp
	SupposedOrderOfNextRound       uint32
	TuneOrderInformation           []TuneOrder
	ImpliedIrreversibleBlockHeight idx.Block
}

type TinyBlockInput struct {
	RoundID          uint64
	ActualMiningTime Timestamp
	ProducedBlocks   uint64
}

// ExtractUpdateValueInput builds the UpdateValue transaction input of a miner
// from a round where its new values are already applied.
func (r *Round) ExtractUpdateValueInput(pubkey string) (*UpdateValueInput, error) {
	m := r.Miner(pubkey)
	if m == nil {
		return nil, ErrMinerNotFound
	}
	latest, _ := m.LatestMiningTime()
	in := &UpdateValueInput{
		OutValue:                       m.OutValue,
		Signature:                      m.Signature,
		PreviousInValue:                m.PreviousInValue,
		RoundID:                        r.ID(),
		ProducedBlocks:                 m.ProducedBlocks,
		ActualMiningTime:               latest,
		SupposedOrderOfNextRound:       m.SupposedOrderOfNextRound,
		ImpliedIrreversibleBlockHeight: m.ImpliedIrreversibleBlockHeight,
	}
	for _, other := range r.Miners {
		if other.FinalOrderOfNextRound != other.SupposedOrderOfNextRound {
			in.TuneOrderInformation = append(in.TuneOrderInformation, TuneOrder{Pubkey: other.Pubkey, Order: other.FinalOrderOfNextRound})
		}
	}
	sort.Slice(in.TuneOrderInformation, func(i, j int) bool {
		return in.TuneOrderInformation[i].Pubkey < in.TuneOrderInformation[j].Pubkey
	})
	return in, nil
}

func (in *UpdateValueInput) MarshalCSER(w *cser.Writer) error {
	if len(in.TuneOrderInformation) > ProtocolMaxMiners {
		return ErrSerMalformedRound
	}
	w.Hash(in.OutValue)
	w.Hash(in.Signature)
	w.Hash(in.PreviousInValue)
	w.U64(in.RoundID)
	w.U64(in.ProducedBlocks)
	w.U64(uint64(in.ActualMiningTime))
	w.U32(in.SupposedOrderOfNextRound)
	w.U32(uint32(len(in.TuneOrderInformation)))
	for _, t := range in.TuneOrderInformation {
		w.String(t.Pubkey)
		w.U32(t.Order)
	}
	w.U64(uint64(in.ImpliedIrreversibleBlockHeight))
	return nil
}

func (in *UpdateValueInput) UnmarshalCSER(r *cser.Reader) error {
	in.OutValue = r.Hash()
	in.Signature = r.Hash()
	in.PreviousInValue = r.Hash()
	in.RoundID = r.U64()
	in.ProducedBlocks = r.U64()
	in.ActualMiningTime = Timestamp(r.U64())
	in.SupposedOrderOfNextRound = r.U32()
	num := r.U32()
	if num > ProtocolMaxMiners {
		return cser.ErrTooLargeAlloc
	}
	if num != 0 {
		in.TuneOrderInformation = make([]TuneOrder, num)
		for i := range in.TuneOrderInformation {
			in.TuneOrderInformation[i].Pubkey = r.String(ProtocolMaxPubkeyLen)
			in.TuneOrderInformation[i].Order = r.U32()
		}
	}
	in.ImpliedIrreversibleBlockHeight = idx.Block(r.U64())
	return nil
}

func (in *TinyBlockInput) MarshalCSER(w *cser.Writer) error {
	w.U64(in.RoundID)
	w.U64(uint64(in.ActualMiningTime))
	w.U64(in.ProducedBlocks)
	return nil
}

func (in *TinyBlockInput) UnmarshalCSER(r *cser.Reader) error {
	in.RoundID = r.U64()
	in.ActualMiningTime = Timestamp(r.U64())
	in.ProducedBlocks = r.U64()
	return nil
}

func (in *UpdateValueInput) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(in.MarshalCSER)
}

func (in *UpdateValueInput) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, in.UnmarshalCSER)
}

func (in *TinyBlockInput) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(in.MarshalCSER)
}

func (in *TinyBlockInput) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, in.UnmarshalCSER)
}
