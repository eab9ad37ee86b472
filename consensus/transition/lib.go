package transition

import (
	"sort"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-dpos/inter"
)

// IrreversibleBlockHeight is the height which more than two thirds of the
// miners of current implied in the previous round. Zero means not enough
// miners agreed yet.
func IrreversibleBlockHeight(current, previous *inter.Round) idx.Block {
	if current.Empty() || previous.Empty() {
		return 0
	}
	heights := make([]idx.Block, 0, len(current.Miners))
	for _, m := range current.MinedMiners() {
		p := previous.Miner(m.Pubkey)
		if p == nil || p.ImpliedIrreversibleBlockHeight == 0 {
			continue
		}
		heights = append(heights, p.ImpliedIrreversibleBlockHeight)
	}
	if len(heights) < current.MinersCountOfConsent() {
		return 0
	}
	sort.Slice(heights, func(i, j int) bool {
		return heights[i] < heights[j]
	})
	return heights[(len(heights)-1)/3]
}

// ConfirmIrreversibleBlock raises the LIB claim of current. It reports
// whether the claim changed.
func ConfirmIrreversibleBlock(current, previous *inter.Round) bool {
	lib := IrreversibleBlockHeight(current, previous)
	if lib <= current.ConfirmedIrreversibleBlockHeight {
		return false
	}
	current.ConfirmedIrreversibleBlockHeight = lib
	current.ConfirmedIrreversibleBlockRoundNumber = current.RoundNumber - 1
	return true
}
