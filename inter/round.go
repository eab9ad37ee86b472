package inter

import (
	"errors"
	"sort"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// DefaultMiningInterval is the interval of a round with a single miner, where
// it cannot be derived from two consecutive expected mining times.
const DefaultMiningInterval = Timestamp(4 * time.Second)

var ErrMinerNotFound = errors.New("miner not found in round")

// Round is one scheduling epoch: every miner of the current term gets one
// ordered time slot, and one miner is designated to produce the extra block
// which terminates the round.
type Round struct {
	RoundNumber uint64
	TermNumber  uint64

	// Miners is kept sorted by Order.
	Miners []*MinerInRound

	ConfirmedIrreversibleBlockHeight      idx.Block
	ConfirmedIrreversibleBlockRoundNumber uint64

	ExtraBlockProducerOfPreviousRound string
	BlockchainAge                     uint64
	IsMinerListJustChanged            bool

	// RoundIDForValidation identifies the round a compact delta was cut from.
	RoundIDForValidation uint64
}

// Copy constructs a deep copy.
func (r *Round) Copy() *Round {
	cp := *r
	cp.Miners = make([]*MinerInRound, len(r.Miners))
	for i, m := range r.Miners {
		cp.Miners[i] = m.Copy()
	}
	return &cp
}

func (r *Round) Empty() bool {
	return r == nil || len(r.Miners) == 0
}

// SortMiners restores the Order invariant after miners were added or reordered.
func (r *Round) SortMiners() {
	sort.SliceStable(r.Miners, func(i, j int) bool {
		return r.Miners[i].Order < r.Miners[j].Order
	})
}

func (r *Round) Miner(pubkey string) *MinerInRound {
	for _, m := range r.Miners {
		if m.Pubkey == pubkey {
			return m
		}
	}
	return nil
}

func (r *Round) HasMiner(pubkey string) bool {
	return r.Miner(pubkey) != nil
}

func (r *Round) MinerByOrder(order uint32) *MinerInRound {
	for _, m := range r.Miners {
		if m.Order == order {
			return m
		}
	}
	return nil
}

func (r *Round) Pubkeys() []string {
	keys := make([]string, len(r.Miners))
	for i, m := range r.Miners {
		keys[i] = m.Pubkey
	}
	return keys
}

// ID sums the expected mining times in seconds, falling back to
// RoundIDForValidation for compact rounds which omit them.
func (r *Round) ID() uint64 {
	if len(r.Miners) == 0 {
		return r.RoundIDForValidation
	}
	var id uint64
	for _, m := range r.Miners {
		if m.ExpectedMiningTime == 0 {
			return r.RoundIDForValidation
		}
		id += uint64(m.ExpectedMiningTime.Unix())
	}
	return id
}

// MiningInterval is the distance between the first two expected mining times.
func (r *Round) MiningInterval() Timestamp {
	if len(r.Miners) <= 1 {
		return DefaultMiningInterval
	}
	first, second := r.MinerByOrder(1), r.MinerByOrder(2)
	if first == nil || second == nil {
		return 0
	}
	if second.ExpectedMiningTime >= first.ExpectedMiningTime {
		return second.ExpectedMiningTime - first.ExpectedMiningTime
	}
	return first.ExpectedMiningTime - second.ExpectedMiningTime
}

// FirstMiner returns the miner with order 1, or an empty miner.
func (r *Round) FirstMiner() *MinerInRound {
	if m := r.MinerByOrder(1); m != nil {
		return m
	}
	return &MinerInRound{}
}

func (r *Round) StartTime() Timestamp {
	return r.FirstMiner().ExpectedMiningTime
}

// ExtraBlockMiningTime is the end of the last miner's slot.
func (r *Round) ExtraBlockMiningTime() Timestamp {
	last := r.MinerByOrder(uint32(len(r.Miners)))
	if last == nil {
		return 0
	}
	return last.ExpectedMiningTime + r.MiningInterval()
}

// TotalDuration is the length of a full round including the extra block slot.
func (r *Round) TotalDuration() Timestamp {
	return Timestamp(len(r.Miners)+1) * r.MiningInterval()
}

func (r *Round) ExtraBlockProducer() *MinerInRound {
	for _, m := range r.Miners {
		if m.IsExtraBlockProducer {
			return m
		}
	}
	return nil
}

// MinersCountOfConsent is the smallest count above two thirds of the miners.
func (r *Round) MinersCountOfConsent() int {
	return len(r.Miners)*2/3 + 1
}

// MinedMiners returns the miners which published their out value, by order.
func (r *Round) MinedMiners() []*MinerInRound {
	res := make([]*MinerInRound, 0, len(r.Miners))
	for _, m := range r.Miners {
		if m.Mined() {
			res = append(res, m)
		}
	}
	return res
}

func (r *Round) NotMinedMiners() []*MinerInRound {
	res := make([]*MinerInRound, 0, len(r.Miners))
	for _, m := range r.Miners {
		if !m.Mined() {
			res = append(res, m)
		}
	}
	return res
}
