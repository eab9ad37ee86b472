package timeslot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-dpos/inter"
)

const interval = inter.Timestamp(4 * time.Second)

func sec(s int64) inter.Timestamp {
	return inter.FromUnix(s)
}

// testRound schedules n miners, the first one at start+interval.
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

func TestEvaluate(t *testing.T) {
	r := testRound(5, 3, sec(1000))

	tests := []struct {
		name     string
		pubkey   string
		now      inter.Timestamp
		arrived  bool
		inWindow bool
		passed   bool
	}{
		{"before", "m2", sec(1007), false, false, false},
		{"start", "m2", sec(1008), true, true, false},
		{"inside", "m2", sec(1011), true, true, false},
		{"end", "m2", sec(1012), true, false, true},
		{"after", "m2", sec(1100), true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Evaluate(r, tt.pubkey, tt.now)
			require.NoError(t, err)
			require.Equal(t, tt.arrived, s.Arrived)
			require.Equal(t, tt.inWindow, s.InWindow)
			require.Equal(t, tt.passed, s.Passed)
			require.Equal(t, sec(1008), s.Start)
			require.Equal(t, sec(1012), s.End)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate(nil, "m1", 0)
	require.Equal(t, ErrUninitializedRound, err)

	_, err = Evaluate(testRound(0, 2, 0), "m1", 0)
	require.Equal(t, ErrUninitializedRound, err)

	_, err = Evaluate(testRound(2, 2, 0), "x", 0)
	require.Equal(t, inter.ErrMinerNotFound, err)

	broken := testRound(2, 2, 0)
	broken.Miners[1].Order = 3
	_, err = Evaluate(broken, "m1", 0)
	require.Equal(t, ErrBrokenSchedule, err)
}

func TestEvaluateFirstRound(t *testing.T) {
	require := require.New(t)

	r := testRound(1, 3, sec(1000))

	// nobody produced yet, nothing is ever passed
	s, err := Evaluate(r, "m2", sec(5000))
	require.NoError(err)
	require.False(s.Passed)

	// the first miner started late, slots shift with it
	r.Miners[0].ActualMiningTimes = []inter.Timestamp{sec(1100)}
	for _, tt := range []struct {
		pubkey string
		now    inter.Timestamp
		passed bool
	}{
		{"m1", sec(1103), false},
		{"m1", sec(1104), true},
		{"m2", sec(1107), false},
		{"m2", sec(1108), true},
		{"m3", sec(1111), false},
	} {
		s, err := Evaluate(r, tt.pubkey, tt.now)
		require.NoError(err)
		require.Equal(tt.passed, s.Passed, "%s at %s", tt.pubkey, tt.now)
	}
}

func TestRemainingTinyBlocks(t *testing.T) {
	require := require.New(t)

	r := testRound(5, 3, sec(1000))
	start := r.StartTime()
	m := r.Miner("m2")

	require.Equal(8, RemainingTinyBlocks(r, m, 8, sec(1008)))
	m.ActualMiningTimes = []inter.Timestamp{sec(1008), sec(1009)}
	require.Equal(6, RemainingTinyBlocks(r, m, 8, sec(1010)))

	// blocks before the round start are credited to the previous extra block producer
	r.ExtraBlockProducerOfPreviousRound = "m2"
	m.ActualMiningTimes = []inter.Timestamp{start - 3, start - 2, start - 1}
	require.Equal(5, RemainingTinyBlocks(r, m, 8, start-1))
	require.Equal(3, BlocksBeforeRoundStart(r, m))
	require.Equal(8, RemainingTinyBlocks(r, m, 8, sec(1008)))

	r.IsMinerListJustChanged = true
	require.Equal(0, BlocksBeforeRoundStart(r, m))
	require.Equal(5, RemainingTinyBlocks(r, m, 8, sec(1008)))

	m.ActualMiningTimes = make([]inter.Timestamp, 10)
	require.Equal(0, RemainingTinyBlocks(r, m, 8, sec(1008)))
}

func TestArrangeAbnormalMiningTime(t *testing.T) {
	require := require.New(t)

	// slots at 1004, 1008, 1012, extra block at 1016, total duration 16s
	r := testRound(5, 3, sec(1000))

	got, err := ArrangeAbnormalMiningTime(r, "m3", sec(1017))
	require.NoError(err)
	require.Equal(sec(1016), got)

	// extra block slot is over, wait for the next virtual round
	got, err = ArrangeAbnormalMiningTime(r, "m3", sec(1020))
	require.NoError(err)
	require.Equal(sec(1004+32+12), got)

	got, err = ArrangeAbnormalMiningTime(r, "m1", sec(1017))
	require.NoError(err)
	require.Equal(sec(1004+16+4), got)

	got, err = ArrangeAbnormalMiningTime(r, "m1", sec(1004+40))
	require.NoError(err)
	require.Equal(sec(1004+48+4), got)

	_, err = ArrangeAbnormalMiningTime(r, "x", sec(1017))
	require.Equal(inter.ErrMinerNotFound, err)
}

func TestMaximumBlocksCount(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e"}
	tests := []struct {
		name   string
		in     StatusInput
		status MiningStatus
		count  int
	}{
		{"no lib", StatusInput{CurrentRound: 50, MaxTinyBlocks: 8, MinersCount: 5}, Normal, 8},
		{"normal", StatusInput{CurrentRound: 12, LibRound: 10, MaxTinyBlocks: 8, MinersCount: 5}, Normal, 8},
		{"abnormal full", StatusInput{CurrentRound: 13, LibRound: 10, MaxTinyBlocks: 8, MinersCount: 5,
			MinedPrevious: all, MinedBeforePrevious: all}, Abnormal, 5},
		{"abnormal partial", StatusInput{CurrentRound: 16, LibRound: 10, MaxTinyBlocks: 8, MinersCount: 5,
			MinedPrevious: all[:3], MinedBeforePrevious: all[1:]}, Abnormal, 1},
		{"abnormal nobody", StatusInput{CurrentRound: 13, LibRound: 10, MaxTinyBlocks: 8, MinersCount: 5}, Abnormal, 1},
		{"severe", StatusInput{CurrentRound: 18, LibRound: 10, MaxTinyBlocks: 8, MinersCount: 5}, Severe, 1},
		{"severe threshold follows max", StatusInput{CurrentRound: 21, LibRound: 10, MaxTinyBlocks: 12, MinersCount: 5,
			MinedPrevious: all, MinedBeforePrevious: all}, Abnormal, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, count := MaximumBlocksCount(tt.in)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.count, count)
		})
	}
}
