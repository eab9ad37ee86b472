package behaviour

import (
	"fmt"
	"testing"
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-dpos/dpos"
	"github.com/rony4d/go-dpos/inter"
)

const interval = inter.Timestamp(4 * time.Second)

func sec(s int64) inter.Timestamp {
	return inter.FromUnix(s)
}

func testRound(number uint64, n int, start inter.Timestamp) *inter.Round {
	r := &inter.Round{RoundNumber: number, TermNumber: 1}
	for i := 0; i < n; i++ {
		r.Miners = append(r.Miners, &inter.MinerInRound{
			Pubkey:             fmt.Sprintf("m%d", i+1),
			Order:              uint32(i + 1),
			ExpectedMiningTime: start + inter.Timestamp(i+1)*interval,
		})
	}
	r.Miners[n-1].IsExtraBlockProducer = true
	return r
}

// mine marks m as having produced count blocks starting at its expected time.
func mine(m *inter.MinerInRound, count int) {
	m.OutValue = hash.Of([]byte(m.Pubkey))
	m.Signature = hash.Of([]byte(m.Pubkey), []byte("sig"))
	m.SupposedOrderOfNextRound = m.Order
	m.FinalOrderOfNextRound = m.Order
	for i := 0; i < count; i++ {
		m.ActualMiningTimes = append(m.ActualMiningTimes, m.ExpectedMiningTime+inter.Timestamp(i)*100*inter.Timestamp(time.Millisecond))
	}
}

func ctxOf(r *inter.Round, pubkey string, now inter.Timestamp) Context {
	return Context{
		Round:            r,
		Pubkey:           pubkey,
		MaxBlocksPerSlot: 8,
		Now:              now,
		ChainStart:       sec(0),
		TermPeriod:       inter.Timestamp(time.Hour),
	}
}

func TestDecideMalformed(t *testing.T) {
	p := NewMainChainProvider()
	r := testRound(3, 3, sec(1000))

	require.Equal(t, inter.Invalid, p.Decide(Context{Pubkey: "m1", MaxBlocksPerSlot: 8}))
	require.Equal(t, inter.Invalid, p.Decide(ctxOf(testRound(0, 3, 0), "m1", sec(1004))))
	require.Equal(t, inter.Invalid, p.Decide(ctxOf(r, "unknown", sec(1004))))

	ctx := ctxOf(r, "m1", sec(1004))
	ctx.MaxBlocksPerSlot = 0
	require.Equal(t, inter.Invalid, p.Decide(ctx))
	ctx.MaxBlocksPerSlot = -3
	require.Equal(t, inter.Invalid, p.Decide(ctx))
}

func TestDecideWithinRound(t *testing.T) {
	r := testRound(3, 3, sec(1000))
	mine(r.Miners[0], 8)
	mine(r.Miners[1], 2)
	r.ExtraBlockProducerOfPreviousRound = "m3"

	tests := []struct {
		name   string
		pubkey string
		now    inter.Timestamp
		want   inter.Behaviour
	}{
		{"before own slot", "m3", sec(1005), inter.Nothing},
		{"own slot", "m3", sec(1012), inter.UpdateValue},
		{"tiny block", "m2", sec(1009), inter.TinyBlock},
		{"tiny blocks exhausted", "m1", sec(1006), inter.NextRound},
		{"slot passed", "m2", sec(1013), inter.NextRound},
		{"missed own slot", "m3", sec(1016), inter.NextRound},
		{"previous extra block producer before round start", "m3", sec(1003), inter.TinyBlock},
	}
	p := NewMainChainProvider()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, p.Decide(ctxOf(r, tt.pubkey, tt.now)))
		})
	}
}

func TestDecideCreditsBlocksBeforeRoundStart(t *testing.T) {
	r := testRound(3, 3, sec(1000))
	r.ExtraBlockProducerOfPreviousRound = "m1"
	m := r.Miners[0]
	for i := 0; i < 8; i++ {
		m.ActualMiningTimes = append(m.ActualMiningTimes, sec(1000)+inter.Timestamp(i))
	}
	p := NewMainChainProvider()

	// pre-round allowance is used up
	require.Equal(t, inter.Nothing, p.Decide(ctxOf(r, "m1", sec(1003))))

	mine(m, 1)
	require.Equal(t, inter.TinyBlock, p.Decide(ctxOf(r, "m1", sec(1005))))

	// not in the first round of a term
	r.IsMinerListJustChanged = true
	require.Equal(t, inter.NextRound, p.Decide(ctxOf(r, "m1", sec(1005))))
}

func TestDecideFirstRound(t *testing.T) {
	p := NewMainChainProvider()

	// single miner round 1: nothing before the slot, UpdateValue at and after it
	single := testRound(1, 1, sec(1000))
	require.Equal(t, inter.Nothing, p.Decide(ctxOf(single, "m1", sec(1003))))
	require.Equal(t, inter.UpdateValue, p.Decide(ctxOf(single, "m1", sec(1004))))
	require.Equal(t, inter.UpdateValue, p.Decide(ctxOf(single, "m1", sec(9000))))

	r := testRound(1, 3, sec(1000))
	// until the first miner produced, the others push the round forward
	require.Equal(t, inter.NextRound, p.Decide(ctxOf(r, "m2", sec(1008))))
	require.Equal(t, inter.UpdateValue, p.Decide(ctxOf(r, "m1", sec(1004))))

	mine(r.Miners[0], 1)
	require.Equal(t, inter.UpdateValue, p.Decide(ctxOf(r, "m2", sec(1008))))
	// round 1 never changes the term
	require.Equal(t, inter.NextRound, p.Decide(ctxOf(r, "m1", sec(90000))))
}

func TestSingleMinerNeverChangesTerm(t *testing.T) {
	p := NewMainChainProvider()
	for _, number := range []uint64{2, 5, 100} {
		r := testRound(number, 1, sec(1000))
		mine(r.Miners[0], 8)
		for _, now := range []inter.Timestamp{sec(1005), sec(1008), sec(100000), sec(10000000)} {
			ctx := ctxOf(r, "m1", now)
			ctx.TermPeriod = interval
			require.NotEqual(t, inter.NextTerm, p.Decide(ctx))
		}
	}
}

func TestDecideNextTerm(t *testing.T) {
	r := testRound(5, 5, sec(7200))
	for _, m := range r.Miners {
		mine(m, 1)
	}
	// chain started at 0, term period is an hour, term 1 is long over
	now := r.ExtraBlockMiningTime()
	ctx := ctxOf(r, "m5", now)

	require.Equal(t, inter.NextTerm, NewMainChainProvider().Decide(ctx))
	require.Equal(t, inter.NextTerm, ForChain(dpos.MainChain).Decide(ctx))
	require.Equal(t, inter.NextRound, NewSideChainProvider().Decide(ctx))
	require.Equal(t, inter.NextRound, ForChain(dpos.SideChain).Decide(ctx))

	// still within the first term
	ctx.ChainStart = sec(7000)
	require.Equal(t, inter.NextRound, NewMainChainProvider().Decide(ctx))
}

func TestNeedToChangeTerm(t *testing.T) {
	require := require.New(t)

	r := testRound(5, 5, sec(3590))
	for _, m := range r.Miners {
		mine(m, 1)
	}
	period := inter.Timestamp(time.Hour)
	// expected times are 3594, 3598, 3602, 3606, 3610: three miners in term 2
	require.False(NeedToChangeTerm(r, 0, period))
	r.Miners[1].ActualMiningTimes = []inter.Timestamp{sec(3601)}
	require.True(NeedToChangeTerm(r, 0, period))

	r.TermNumber = 2
	require.False(NeedToChangeTerm(r, 0, period))
	require.False(NeedToChangeTerm(r, 0, 0))
}

func TestStaleMinerRecovery(t *testing.T) {
	r := testRound(3, 3, sec(1000))
	mine(r.Miners[0], 1)
	p := NewMainChainProvider()

	for _, now := range []inter.Timestamp{sec(900), sec(1004), sec(1009), sec(5000)} {
		for _, pubkey := range []string{"m2", "m3"} {
			ctx := ctxOf(r, pubkey, now)
			ctx.TinyBlocks = inter.TinyBlocksCounter{Pubkey: "m1", BlocksCount: -1}
			require.Equal(t, inter.NextRound, p.Decide(ctx))
		}
		ctx := ctxOf(r, "m1", now)
		ctx.TinyBlocks = inter.TinyBlocksCounter{Pubkey: "m1", BlocksCount: -1}
		require.Equal(t, inter.Nothing, p.Decide(ctx))
	}

	// the first rounds are exempt
	early := testRound(2, 3, sec(1000))
	ctx := ctxOf(early, "m2", sec(1008))
	ctx.TinyBlocks = inter.TinyBlocksCounter{Pubkey: "m1", BlocksCount: -1}
	require.Equal(t, inter.UpdateValue, p.Decide(ctx))
}

func TestDecideIsDeterministic(t *testing.T) {
	r := testRound(7, 5, sec(1000))
	mine(r.Miners[0], 3)
	mine(r.Miners[1], 8)
	p := NewMainChainProvider()
	for now := sec(990); now < sec(1040); now += inter.Timestamp(700 * time.Millisecond) {
		for _, m := range r.Miners {
			ctx := ctxOf(r, m.Pubkey, now)
			require.Equal(t, p.Decide(ctx), p.Decide(ctxOf(r.Copy(), m.Pubkey, now)))
		}
	}
}
