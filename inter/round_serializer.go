package inter

import (
	"errors"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-dpos/utils/cser"
)

const (
	// ProtocolMaxMiners bounds the miner list of a decoded round.
	ProtocolMaxMiners = 1024
	// ProtocolMaxMiningTimes bounds the actual mining times of a decoded miner.
	ProtocolMaxMiningTimes = 4096
	// ProtocolMaxPubkeyLen bounds a decoded miner identity.
	ProtocolMaxPubkeyLen = 256
)

var ErrSerMalformedRound = errors.New("serialization of malformed round")

// MarshalCSER writes the round. Actual mining times are written as signed
// distances to the previous time (the first one to the expected time).
func (r *Round) MarshalCSER(w *cser.Writer) error {
	if len(r.Miners) > ProtocolMaxMiners {
		return ErrSerMalformedRound
	}
	w.U64(r.RoundNumber)
	w.U64(r.TermNumber)
	w.U64(r.BlockchainAge)
	w.U64(uint64(r.ConfirmedIrreversibleBlockHeight))
	w.U64(r.ConfirmedIrreversibleBlockRoundNumber)
	w.String(r.ExtraBlockProducerOfPreviousRound)
	w.Bool(r.IsMinerListJustChanged)
	w.U64(r.RoundIDForValidation)

	w.U32(uint32(len(r.Miners)))
	for _, m := range r.Miners {
		if len(m.Pubkey) > ProtocolMaxPubkeyLen || len(m.ActualMiningTimes) > ProtocolMaxMiningTimes {
			return ErrSerMalformedRound
		}
		w.String(m.Pubkey)
		w.U32(m.Order)
		w.Bool(m.IsExtraBlockProducer)
		w.U64(uint64(m.ExpectedMiningTime))

		w.U32(uint32(len(m.ActualMiningTimes)))
		prev := m.ExpectedMiningTime
		for _, t := range m.ActualMiningTimes {
			w.I64(int64(t) - int64(prev))
			prev = t
		}

		w.U64(m.ProducedBlocks)
		w.U64(m.MissedTimeSlots)
		w.U64(m.ProducedTinyBlocks)
		w.Hash(m.InValue)
		w.Hash(m.PreviousInValue)
		w.Hash(m.OutValue)
		w.Hash(m.Signature)
		w.U32(m.SupposedOrderOfNextRound)
		w.U32(m.FinalOrderOfNextRound)
		w.U64(uint64(m.ImpliedIrreversibleBlockHeight))
	}
	return nil
}

func (r *Round) UnmarshalCSER(rd *cser.Reader) error {
	r.RoundNumber = rd.U64()
	r.TermNumber = rd.U64()
	r.BlockchainAge = rd.U64()
	r.ConfirmedIrreversibleBlockHeight = idx.Block(rd.U64())
	r.ConfirmedIrreversibleBlockRoundNumber = rd.U64()
	r.ExtraBlockProducerOfPreviousRound = rd.String(ProtocolMaxPubkeyLen)
	r.IsMinerListJustChanged = rd.Bool()
	r.RoundIDForValidation = rd.U64()

	num := rd.U32()
	if num > ProtocolMaxMiners {
		return cser.ErrTooLargeAlloc
	}
	r.Miners = make([]*MinerInRound, num)
	for i := range r.Miners {
		m := &MinerInRound{}
		m.Pubkey = rd.String(ProtocolMaxPubkeyLen)
		m.Order = rd.U32()
		m.IsExtraBlockProducer = rd.Bool()
		m.ExpectedMiningTime = Timestamp(rd.U64())

		times := rd.U32()
		if times > ProtocolMaxMiningTimes {
			return cser.ErrTooLargeAlloc
		}
		if times != 0 {
			m.ActualMiningTimes = make([]Timestamp, times)
			prev := int64(m.ExpectedMiningTime)
			for j := range m.ActualMiningTimes {
				prev += rd.I64()
				m.ActualMiningTimes[j] = Timestamp(prev)
			}
		}

		m.ProducedBlocks = rd.U64()
		m.MissedTimeSlots = rd.U64()
		m.ProducedTinyBlocks = rd.U64()
		m.InValue = rd.Hash()
		m.PreviousInValue = rd.Hash()
		m.OutValue = rd.Hash()
		m.Signature = rd.Hash()
		m.SupposedOrderOfNextRound = rd.U32()
		m.FinalOrderOfNextRound = rd.U32()
		m.ImpliedIrreversibleBlockHeight = idx.Block(rd.U64())
		r.Miners[i] = m
	}
	for i := 1; i < len(r.Miners); i++ {
		if r.Miners[i-1].Order > r.Miners[i].Order {
			return ErrSerMalformedRound
		}
	}
	return nil
}

func (r *Round) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(r.MarshalCSER)
}

func (r *Round) UnmarshalBinary(raw []byte) error {
	return cser.UnmarshalBinaryAdapter(raw, r.UnmarshalCSER)
}
