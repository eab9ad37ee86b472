package transition

import (
	"math/big"
	"math/bits"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/Fantom-foundation/lachesis-base/inter/pos"

	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/inter/electtype"
	"github.com/rony4d/go-dpos/inter/minerpk"
)

// OrderPolicy places the miners of a new term.
type OrderPolicy interface {
	Order(victories []electtype.Victory) []string
}

// FirstByteOrder sorts by the first byte of the key, descending. Ties are
// broken by the key itself.
type FirstByteOrder struct{}

func (FirstByteOrder) Order(victories []electtype.Victory) []string {
	sorted := make([]minerpk.PubKey, len(victories))
	for i, v := range victories {
		sorted[i] = v.PubKey
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].FirstByte(), sorted[j].FirstByte()
		if a != b {
			return a > b
		}
		return sorted[i].String() < sorted[j].String()
	})
	return minerpk.Strings(sorted)
}

// VotesOrder places the most voted miners first, using the deterministic
// weight order of a validators set.
type VotesOrder struct{}

func (VotesOrder) Order(victories []electtype.Victory) []string {
	byKey := make([]electtype.Victory, len(victories))
	copy(byKey, victories)
	sort.SliceStable(byKey, func(i, j int) bool {
		return byKey[i].PubKey.String() < byKey[j].PubKey.String()
	})

	// the total weight is 32 bit, scale the votes down evenly
	limit := 31 - bits.Len(uint(len(byKey)))
	maxBits := 0
	for _, v := range byKey {
		if v.Votes != nil && v.Votes.BitLen() > maxBits {
			maxBits = v.Votes.BitLen()
		}
	}
	shift := uint(0)
	if maxBits > limit {
		shift = uint(maxBits - limit)
	}

	builder := pos.NewBuilder()
	for i, v := range byKey {
		w := uint64(0)
		if v.Votes != nil && v.Votes.Sign() > 0 {
			w = new(big.Int).Rsh(v.Votes, shift).Uint64()
		}
		// zero weight would drop the miner
		builder.Set(idx.ValidatorID(i+1), pos.Weight(w+1))
	}
	validators := builder.Build()

	res := make([]string, 0, len(byKey))
	for _, id := range validators.SortedIDs() {
		res = append(res, byKey[id-1].PubKey.String())
	}
	return res
}

// FirstRoundOfNewTerm schedules miners, already in their order, starting one
// interval after now. The first miner produces the extra block.
func FirstRoundOfNewTerm(miners []string, interval, now inter.Timestamp, currentRound, currentTerm uint64) (*inter.Round, error) {
	if len(miners) == 0 {
		return nil, ErrNoMiners
	}
	if interval == 0 {
		return nil, ErrBrokenSchedule
	}
	seen := make(map[string]bool, len(miners))
	for _, pubkey := range miners {
		if seen[pubkey] {
			return nil, ErrDuplicateMiner
		}
		seen[pubkey] = true
	}
	r := &inter.Round{
		RoundNumber:            currentRound + 1,
		TermNumber:             currentTerm + 1,
		IsMinerListJustChanged: true,
		Miners:                 make([]*inter.MinerInRound, len(miners)),
	}
	for i, pubkey := range miners {
		r.Miners[i] = &inter.MinerInRound{
			Pubkey:               pubkey,
			Order:                uint32(i + 1),
			IsExtraBlockProducer: i == 0,
			ExpectedMiningTime:   now + inter.Timestamp(i+1)*interval,
		}
	}
	return r, nil
}

// NextTerm builds the first round of the next term from the election
// result. Without victories the miner list of current is kept.
func NextTerm(current *inter.Round, victories []electtype.Victory, policy OrderPolicy, now, chainStart inter.Timestamp) (*inter.Round, error) {
	if current.Empty() {
		return nil, ErrNoRound
	}
	if len(victories) == 0 {
		var err error
		victories, err = VictoriesOf(current)
		if err != nil {
			return nil, err
		}
	}
	miners := policy.Order(uniqueVictories(victories))

	next, err := FirstRoundOfNewTerm(miners, current.MiningInterval(), now, current.RoundNumber, current.TermNumber)
	if err != nil {
		return nil, err
	}
	next.ConfirmedIrreversibleBlockHeight = current.ConfirmedIrreversibleBlockHeight
	next.ConfirmedIrreversibleBlockRoundNumber = current.ConfirmedIrreversibleBlockRoundNumber
	next.BlockchainAge = blockchainAge(current, now, chainStart)

	// the producer of this block must not open the new term as well
	if ebp := current.ExtraBlockProducer(); ebp != nil && len(next.Miners) > 1 && next.Miners[0].Pubkey == ebp.Pubkey {
		swapSlots(next.Miners[0], next.Miners[1])
		next.SortMiners()
	}
	return next, nil
}

// VictoriesOf re-elects the miners of r.
func VictoriesOf(r *inter.Round) ([]electtype.Victory, error) {
	res := make([]electtype.Victory, 0, len(r.Miners))
	for _, m := range r.Miners {
		pk, err := minerpk.FromString(m.Pubkey)
		if err != nil {
			return nil, err
		}
		res = append(res, electtype.Victory{PubKey: pk})
	}
	return res, nil
}

// uniqueVictories drops repeated keys, the first victory of a key wins.
func uniqueVictories(victories []electtype.Victory) []electtype.Victory {
	seen := make(map[string]bool, len(victories))
	res := make([]electtype.Victory, 0, len(victories))
	for _, v := range victories {
		key := v.PubKey.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		res = append(res, v)
	}
	return res
}
