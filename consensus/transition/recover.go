package transition

import (
	"github.com/rony4d/go-dpos/inter"
)

// RecoverFromUpdateValue merges the UpdateValue delta of pubkey into a copy
// of base.
func RecoverFromUpdateValue(base, provided *inter.Round, pubkey string) (*inter.Round, error) {
	res, sender, delta, err := prepareRecover(base, provided, pubkey)
	if err != nil {
		return nil, err
	}
	sender.OutValue = delta.OutValue
	sender.Signature = delta.Signature
	sender.ProducedBlocks = delta.ProducedBlocks
	sender.ProducedTinyBlocks = delta.ProducedTinyBlocks
	sender.PreviousInValue = delta.PreviousInValue
	sender.ImpliedIrreversibleBlockHeight = delta.ImpliedIrreversibleBlockHeight
	appendNewTimes(sender, delta.ActualMiningTimes)

	for _, d := range provided.Miners {
		m := res.Miner(d.Pubkey)
		if m == nil {
			return nil, inter.ErrMinerNotFound
		}
		m.SupposedOrderOfNextRound = d.SupposedOrderOfNextRound
		m.FinalOrderOfNextRound = d.FinalOrderOfNextRound
		m.PreviousInValue = d.PreviousInValue
	}
	return res, nil
}

// RecoverFromTinyBlock merges the TinyBlock delta of pubkey into a copy of
// base.
func RecoverFromTinyBlock(base, provided *inter.Round, pubkey string) (*inter.Round, error) {
	res, sender, delta, err := prepareRecover(base, provided, pubkey)
	if err != nil {
		return nil, err
	}
	sender.ImpliedIrreversibleBlockHeight = delta.ImpliedIrreversibleBlockHeight
	sender.ProducedBlocks = delta.ProducedBlocks
	sender.ProducedTinyBlocks = delta.ProducedTinyBlocks
	appendNewTimes(sender, delta.ActualMiningTimes)
	return res, nil
}

// Recover merges the delta of a producing behaviour. Round terminating
// behaviours carry a complete round which is returned as is.
func Recover(b inter.Behaviour, base, provided *inter.Round, pubkey string) (*inter.Round, error) {
	switch b {
	case inter.UpdateValue:
		return RecoverFromUpdateValue(base, provided, pubkey)
	case inter.TinyBlock:
		return RecoverFromTinyBlock(base, provided, pubkey)
	case inter.NextRound, inter.NextTerm:
		return provided, nil
	}
	return nil, inter.ErrUnknownBehaviour
}

func prepareRecover(base, provided *inter.Round, pubkey string) (res *inter.Round, sender, delta *inter.MinerInRound, err error) {
	if base == nil || provided == nil {
		return nil, nil, nil, ErrNoRound
	}
	delta = provided.Miner(pubkey)
	if delta == nil || !base.HasMiner(pubkey) {
		return nil, nil, nil, inter.ErrMinerNotFound
	}
	res = base.Copy()
	return res, res.Miner(pubkey), delta, nil
}

// appendNewTimes appends the times which are later than the ones m already
// has. Deltas carry the whole list.
func appendNewTimes(m *inter.MinerInRound, times []inter.Timestamp) {
	latest, ok := m.LatestMiningTime()
	for _, t := range times {
		if ok && t <= latest {
			continue
		}
		m.ActualMiningTimes = append(m.ActualMiningTimes, t)
		latest, ok = t, true
	}
}
