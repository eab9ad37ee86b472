package timeslot

// MiningStatus classifies how far the chain lags behind its last
// irreversible block.
type MiningStatus uint8

const (
	Normal MiningStatus = iota
	Abnormal
	Severe
)

func (s MiningStatus) String() string {
	switch s {
	case Normal:
		return "normal"
	case Abnormal:
		return "abnormal"
	case Severe:
		return "severe"
	}
	return "unknown"
}

// StatusInput is what MaximumBlocksCount reads from the chain.
type StatusInput struct {
	CurrentRound  uint64
	LibRound      uint64
	MaxTinyBlocks int
	MinersCount   int
	// MinedPrevious and MinedBeforePrevious are the miners which produced in
	// rounds CurrentRound-1 and CurrentRound-2.
	MinedPrevious       []string
	MinedBeforePrevious []string
}

// SevereStatusRoundsThreshold is the LIB lag, in rounds, at which only one
// block per slot is allowed.
func SevereStatusRoundsThreshold(maxTinyBlocks int) uint64 {
	if maxTinyBlocks > 8 {
		return uint64(maxTinyBlocks)
	}
	return 8
}

// MaximumBlocksCount shrinks the blocks allowed per slot while the LIB lags
// behind, so that forks stay short until finality catches up.
func MaximumBlocksCount(in StatusInput) (MiningStatus, int) {
	if in.LibRound == 0 || in.CurrentRound <= in.LibRound+2 {
		return Normal, in.MaxTinyBlocks
	}
	threshold := SevereStatusRoundsThreshold(in.MaxTinyBlocks)
	if in.CurrentRound >= in.LibRound+threshold {
		return Severe, 1
	}
	if in.MinersCount <= 0 {
		return Abnormal, 1
	}

	seen := make(map[string]struct{}, len(in.MinedBeforePrevious))
	for _, p := range in.MinedBeforePrevious {
		seen[p] = struct{}{}
	}
	both := 0
	for _, p := range in.MinedPrevious {
		if _, ok := seen[p]; ok {
			both++
		}
	}

	factor := uint64(both) * (threshold - (in.CurrentRound - in.LibRound))
	count := int((factor + uint64(in.MinersCount) - 1) / uint64(in.MinersCount))
	if count > in.MaxTinyBlocks {
		count = in.MaxTinyBlocks
	}
	if count < 1 {
		count = 1
	}
	return Abnormal, count
}
