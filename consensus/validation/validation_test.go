package validation

import (
	"fmt"
	"testing"
	"time"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-dpos/consensus/transition"
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

// produced returns base with a block of sender at t.
func produced(base *inter.Round, sender string, t inter.Timestamp) *inter.Round {
	r := base.Copy()
	m := r.Miner(sender)
	m.ActualMiningTimes = append(m.ActualMiningTimes, t)
	return r
}

func TestResult(t *testing.T) {
	require.True(t, Ok().And(Ok()).Success)
	require.Equal(t, "a", Ok().And(Fail("a")).Message)
	require.Equal(t, "a", Fail("a").And(Fail("b")).Message)
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	calls := 0
	count := Func(func(*Context) Result {
		calls++
		return Ok()
	})
	p := Pipeline{count, Func(func(*Context) Result { return Fail("first") }), count}
	res := p.Validate(&Context{})
	require.False(t, res.Success)
	require.Equal(t, "first", res.Message)
	require.Equal(t, 1, calls)

	require.True(t, Pipeline{count, count}.Validate(&Context{}).Success)
	require.Equal(t, 3, calls)
}

func TestForBehaviour(t *testing.T) {
	tests := []struct {
		b    inter.Behaviour
		want Pipeline
	}{
		{inter.UpdateValue, Pipeline{MiningPermission{}, TimeSlot{}, ContinuousBlocks{}, UpdateValue{}, LibInformation{}}},
		{inter.TinyBlock, Pipeline{MiningPermission{}, TimeSlot{}, ContinuousBlocks{}, LibInformation{}}},
		{inter.NextRound, Pipeline{MiningPermission{}, TimeSlot{}, ContinuousBlocks{}, NextRoundMiningOrder{}, RoundTerminate{}, LibInformation{}, NextRoundInformation{}}},
		{inter.NextTerm, Pipeline{MiningPermission{}, TimeSlot{}, ContinuousBlocks{}, RoundTerminate{}, LibInformation{}, NextRoundInformation{}}},
	}
	for _, tt := range tests {
		t.Run(tt.b.String(), func(t *testing.T) {
			require.Equal(t, tt.want, ForBehaviour(tt.b))
		})
	}

	extra := Func(func(*Context) Result { return Fail("extra") })
	p := ForBehaviour(inter.TinyBlock, extra)
	require.Len(t, p, 5)

	res := ForBehaviour(inter.Nothing).Validate(&Context{})
	require.False(t, res.Success)
}

func TestMiningPermission(t *testing.T) {
	base := testRound(3, 3, sec(1000))
	require.True(t, MiningPermission{}.Validate(&Context{BaseRound: base, SenderPubkey: "m2"}).Success)
	require.False(t, MiningPermission{}.Validate(&Context{BaseRound: base, SenderPubkey: "x"}).Success)
	require.False(t, MiningPermission{}.Validate(&Context{SenderPubkey: "m2"}).Success)
}

func TestTimeSlot(t *testing.T) {
	base := testRound(3, 3, sec(1000))
	base.ExtraBlockProducerOfPreviousRound = "m3"

	tests := []struct {
		name   string
		sender string
		at     inter.Timestamp
		ok     bool
	}{
		{"in slot", "m2", sec(1009), true},
		{"slot start", "m2", sec(1008), true},
		{"slot end", "m2", sec(1012), false},
		{"too early", "m2", sec(1006), false},
		{"previous extra block slot", "m3", sec(1003), true},
		{"early but not previous extra block producer", "m1", sec(1003), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &Context{
				BaseRound:      base,
				RecoveredRound: produced(base, tt.sender, tt.at),
				SenderPubkey:   tt.sender,
				Behaviour:      inter.TinyBlock,
			}
			require.Equal(t, tt.ok, TimeSlot{}.Validate(ctx).Success)
		})
	}

	// round 1 is scheduled from genesis, any time goes
	first := testRound(1, 3, sec(1000))
	ctx := &Context{BaseRound: first, RecoveredRound: produced(first, "m2", sec(5000)), SenderPubkey: "m2", Behaviour: inter.UpdateValue}
	require.True(t, TimeSlot{}.Validate(ctx).Success)
}

func TestCheckRoundTimeSlots(t *testing.T) {
	r := testRound(4, 4, sec(1000))
	require.True(t, CheckRoundTimeSlots(r).Success)
	require.True(t, CheckRoundTimeSlots(testRound(4, 1, sec(1000))).Success)
	require.False(t, CheckRoundTimeSlots(&inter.Round{}).Success)

	uneven := r.Copy()
	uneven.Miners[3].ExpectedMiningTime += 5 * interval
	require.False(t, CheckRoundTimeSlots(uneven).Success)

	slightly := r.Copy()
	slightly.Miners[3].ExpectedMiningTime += interval / 2
	require.True(t, CheckRoundTimeSlots(slightly).Success)

	reversed := r.Copy()
	reversed.Miners[1].ExpectedMiningTime = reversed.Miners[0].ExpectedMiningTime
	require.False(t, CheckRoundTimeSlots(reversed).Success)

	missing := r.Copy()
	missing.Miners[2].ExpectedMiningTime = 0
	require.False(t, CheckRoundTimeSlots(missing).Success)

	// a terminating block is checked by its new round
	ctx := &Context{BaseRound: r, ProvidedRound: uneven, Behaviour: inter.NextRound, SenderPubkey: "m1"}
	require.False(t, TimeSlot{}.Validate(ctx).Success)
}

func TestContinuousBlocks(t *testing.T) {
	base := testRound(3, 3, sec(1000))
	ctx := &Context{
		BaseRound:     base,
		ProvidedRound: base,
		SenderPubkey:  "m1",
		TinyBlocks:    inter.TinyBlocksCounter{Pubkey: "m1", BlocksCount: -1},
	}
	require.False(t, ContinuousBlocks{}.Validate(ctx).Success)

	ctx.SenderPubkey = "m2"
	require.True(t, ContinuousBlocks{}.Validate(ctx).Success)

	ctx.SenderPubkey = "m1"
	ctx.TinyBlocks.BlocksCount = 0
	require.True(t, ContinuousBlocks{}.Validate(ctx).Success)

	single := testRound(3, 1, sec(1000))
	ctx = &Context{BaseRound: single, ProvidedRound: single, SenderPubkey: "m1", TinyBlocks: inter.TinyBlocksCounter{Pubkey: "m1", BlocksCount: -5}}
	require.True(t, ContinuousBlocks{}.Validate(ctx).Success)
}

func TestUpdateValue(t *testing.T) {
	require := require.New(t)

	previousIn := hash.Of([]byte("in of round 2"))
	previous := testRound(2, 3, sec(980))
	previous.Miners[0].OutValue = transition.OutValue(previousIn)

	provided := testRound(3, 3, sec(1000))
	m := provided.Miner("m1")
	m.OutValue = hash.Of([]byte("out"))
	m.Signature = hash.Of([]byte("sig"))
	ctx := &Context{ProvidedRound: provided, PreviousRound: previous, SenderPubkey: "m1"}

	require.True(UpdateValue{}.Validate(ctx).Success)

	m.PreviousInValue = previousIn
	require.True(UpdateValue{}.Validate(ctx).Success)

	m.PreviousInValue = hash.Of([]byte("forged"))
	require.Equal("incorrect previous in value", UpdateValue{}.Validate(ctx).Message)

	// nothing to check the reveal against
	m.PreviousInValue = previousIn
	ctx.PreviousRound = nil
	require.False(UpdateValue{}.Validate(ctx).Success)

	m.Signature = hash.Hash{}
	require.Equal("incorrect new out value", UpdateValue{}.Validate(ctx).Message)
}

func TestLibInformation(t *testing.T) {
	base := testRound(5, 3, sec(1000))
	base.ConfirmedIrreversibleBlockHeight = 100
	base.ConfirmedIrreversibleBlockRoundNumber = 4
	base.Miners[0].ImpliedIrreversibleBlockHeight = 90

	tests := []struct {
		name    string
		b       inter.Behaviour
		lib     uint64
		libR    uint64
		implied uint64
		ok      bool
	}{
		{"same", inter.UpdateValue, 100, 4, 90, true},
		{"advanced", inter.UpdateValue, 120, 5, 110, true},
		{"not claimed", inter.TinyBlock, 0, 0, 0, true},
		{"height regressed", inter.UpdateValue, 99, 4, 90, false},
		{"round regressed", inter.UpdateValue, 100, 3, 90, false},
		{"implied regressed", inter.UpdateValue, 100, 4, 89, false},
		{"next round keeps", inter.NextRound, 100, 4, 0, true},
		{"next round not claimed", inter.NextRound, 0, 0, 0, false},
		{"next round regressed", inter.NextRound, 1, 1, 0, false},
		{"next term height regressed", inter.NextTerm, 99, 4, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provided := base.Copy()
			provided.ConfirmedIrreversibleBlockHeight = idxBlock(tt.lib)
			provided.ConfirmedIrreversibleBlockRoundNumber = tt.libR
			provided.Miners[0].ImpliedIrreversibleBlockHeight = idxBlock(tt.implied)
			ctx := &Context{BaseRound: base, ProvidedRound: provided, SenderPubkey: "m1", Behaviour: tt.b}
			require.Equal(t, tt.ok, LibInformation{}.Validate(ctx).Success)
		})
	}
}

func TestNextRoundMiningOrder(t *testing.T) {
	base := testRound(3, 3, sec(1000))
	ctx := &Context{BaseRound: base}
	require.True(t, NextRoundMiningOrder{}.Validate(ctx).Success)

	base.Miners[0].OutValue = hash.Of([]byte("1"))
	base.Miners[0].FinalOrderOfNextRound = 2
	base.Miners[1].OutValue = hash.Of([]byte("2"))
	base.Miners[1].FinalOrderOfNextRound = 1
	require.True(t, NextRoundMiningOrder{}.Validate(ctx).Success)

	base.Miners[1].FinalOrderOfNextRound = 2
	require.False(t, NextRoundMiningOrder{}.Validate(ctx).Success)
}

func TestRoundTerminate(t *testing.T) {
	base := testRound(3, 3, sec(1000))

	next := testRound(4, 3, sec(1016))
	ctx := &Context{BaseRound: base, ProvidedRound: next, Behaviour: inter.NextRound}
	require.True(t, RoundTerminate{}.Validate(ctx).Success)

	ctx.Behaviour = inter.NextTerm
	require.False(t, RoundTerminate{}.Validate(ctx).Success)
	next.TermNumber = 2
	require.True(t, RoundTerminate{}.Validate(ctx).Success)

	ctx.Behaviour = inter.NextRound
	require.False(t, RoundTerminate{}.Validate(ctx).Success)
	next.TermNumber = 1

	skipped := testRound(5, 3, sec(1016))
	ctx.ProvidedRound = skipped
	require.Equal(t, "incorrect round number for next round", RoundTerminate{}.Validate(ctx).Message)

	exposed := next.Copy()
	exposed.Miners[1].InValue = hash.Of([]byte("secret"))
	ctx.ProvidedRound = exposed
	require.Equal(t, "incorrect next round information", RoundTerminate{}.Validate(ctx).Message)
}

func TestNextRoundInformation(t *testing.T) {
	expected := testRound(4, 3, sec(1016))
	expected.ConfirmedIrreversibleBlockHeight = 100
	expected.ConfirmedIrreversibleBlockRoundNumber = 3
	expected.ExtraBlockProducerOfPreviousRound = "m3"

	tests := []struct {
		name   string
		tamper func(r *inter.Round)
		ok     bool
	}{
		{"same", func(*inter.Round) {}, true},
		{"mining times differ", func(r *inter.Round) { r.Miners[0].ActualMiningTimes = nil }, true},
		{"lib height", func(r *inter.Round) { r.ConfirmedIrreversibleBlockHeight = 1 }, false},
		{"lib round", func(r *inter.Round) { r.ConfirmedIrreversibleBlockRoundNumber = 1 }, false},
		{"terminator", func(r *inter.Round) { r.ExtraBlockProducerOfPreviousRound = "m1" }, false},
		{"miner list changed", func(r *inter.Round) { r.IsMinerListJustChanged = true }, false},
		{"foreign miner", func(r *inter.Round) { r.Miners[2].Pubkey = "x" }, false},
		{"round number", func(r *inter.Round) { r.RoundNumber++ }, false},
		{"expected time", func(r *inter.Round) { r.Miners[1].ExpectedMiningTime += interval }, false},
		{"no miners", func(r *inter.Round) { r.Miners = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provided := expected.Copy()
			tt.tamper(provided)
			ctx := &Context{ExpectedRound: expected, ProvidedRound: provided}
			res := NextRoundInformation{}.Validate(ctx)
			require.Equal(t, tt.ok, res.Success)
			if !tt.ok {
				require.Equal(t, MsgUnexpectedSuccessor, res.Message)
			}
		})
	}

	res := NextRoundInformation{}.Validate(&Context{ProvidedRound: expected})
	require.False(t, res.Success)
}

func idxBlock(n uint64) idx.Block {
	return idx.Block(n)
}
