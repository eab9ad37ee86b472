package inter

// UpdateValueRound cuts the delta a miner publishes with its first block of
// the round. Only the sender carries its commit/reveal data and counters; the
// other miners carry what ApplyUpdateValue may have changed for them.
func (r *Round) UpdateValueRound(pubkey string) (*Round, error) {
	sender := r.Miner(pubkey)
	if sender == nil {
		return nil, ErrMinerNotFound
	}
	compact := &Round{
		RoundNumber:                           r.RoundNumber,
		TermNumber:                            r.TermNumber,
		ConfirmedIrreversibleBlockHeight:      r.ConfirmedIrreversibleBlockHeight,
		ConfirmedIrreversibleBlockRoundNumber: r.ConfirmedIrreversibleBlockRoundNumber,
		RoundIDForValidation:                  r.ID(),
		Miners:                                make([]*MinerInRound, 0, len(r.Miners)),
	}
	for _, m := range r.Miners {
		if m.Pubkey == pubkey {
			compact.Miners = append(compact.Miners, &MinerInRound{
				Pubkey:                         m.Pubkey,
				Order:                          m.Order,
				IsExtraBlockProducer:           m.IsExtraBlockProducer,
				OutValue:                       m.OutValue,
				Signature:                      m.Signature,
				PreviousInValue:                m.PreviousInValue,
				ProducedBlocks:                 m.ProducedBlocks,
				ProducedTinyBlocks:             m.ProducedTinyBlocks,
				ActualMiningTimes:              append([]Timestamp(nil), m.ActualMiningTimes...),
				SupposedOrderOfNextRound:       m.SupposedOrderOfNextRound,
				FinalOrderOfNextRound:          m.FinalOrderOfNextRound,
				ImpliedIrreversibleBlockHeight: m.ImpliedIrreversibleBlockHeight,
			})
			continue
		}
		compact.Miners = append(compact.Miners, &MinerInRound{
			Pubkey:                   m.Pubkey,
			Order:                    m.Order,
			IsExtraBlockProducer:     m.IsExtraBlockProducer,
			PreviousInValue:          m.PreviousInValue,
			SupposedOrderOfNextRound: m.SupposedOrderOfNextRound,
			FinalOrderOfNextRound:    m.FinalOrderOfNextRound,
		})
	}
	return compact, nil
}

// TinyBlockRound cuts the delta of a tiny block: the sender's production
// counters and times only.
func (r *Round) TinyBlockRound(pubkey string) (*Round, error) {
	sender := r.Miner(pubkey)
	if sender == nil {
		return nil, ErrMinerNotFound
	}
	compact := &Round{
		RoundNumber:                           r.RoundNumber,
		TermNumber:                            r.TermNumber,
		ConfirmedIrreversibleBlockHeight:      r.ConfirmedIrreversibleBlockHeight,
		ConfirmedIrreversibleBlockRoundNumber: r.ConfirmedIrreversibleBlockRoundNumber,
		RoundIDForValidation:                  r.ID(),
		Miners:                                make([]*MinerInRound, 0, len(r.Miners)),
	}
	for _, m := range r.Miners {
		if m.Pubkey == pubkey {
			compact.Miners = append(compact.Miners, &MinerInRound{
				Pubkey:                         m.Pubkey,
				Order:                          m.Order,
				ProducedBlocks:                 m.ProducedBlocks,
				ProducedTinyBlocks:             m.ProducedTinyBlocks,
				ActualMiningTimes:              append([]Timestamp(nil), m.ActualMiningTimes...),
				ImpliedIrreversibleBlockHeight: m.ImpliedIrreversibleBlockHeight,
			})
			continue
		}
		compact.Miners = append(compact.Miners, &MinerInRound{Pubkey: m.Pubkey, Order: m.Order})
	}
	return compact, nil
}
