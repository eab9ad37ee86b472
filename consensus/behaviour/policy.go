package behaviour

import (
	"github.com/rony4d/go-dpos/inter"
)

// MainChainPolicy starts a new term once most miners produced past the end
// of the current term's period.
func MainChainPolicy(ctx *Context) inter.Behaviour {
	if NeedToChangeTerm(ctx.Round, ctx.ChainStart, ctx.TermPeriod) {
		return inter.NextTerm
	}
	return inter.NextRound
}

// SideChainPolicy never changes terms, the miner list comes from the parent
// chain.
func SideChainPolicy(*Context) inter.Behaviour {
	return inter.NextRound
}

// NeedToChangeTerm counts the miners whose latest block falls outside the
// period of the round's term.
func NeedToChangeTerm(r *inter.Round, chainStart, period inter.Timestamp) bool {
	if period == 0 || r.TermNumber == 0 {
		return false
	}
	count := 0
	for _, m := range r.Miners {
		t, ok := m.LatestMiningTime()
		if !ok {
			continue
		}
		if uint64(t.Sub(chainStart)/period) != r.TermNumber-1 {
			count++
		}
	}
	return count >= r.MinersCountOfConsent()
}
