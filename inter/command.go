package inter

import (
	"fmt"
	"math"
)

// CommandHint lets the miner check that the state it was scheduled against
// is still the current one when the arranged time comes.
type CommandHint struct {
	RoundID         uint64
	PreviousRoundID uint64
}

// ConsensusCommand tells a miner when to produce its next block and with
// which behaviour. It is recomputed on every request.
type ConsensusCommand struct {
	Behaviour          Behaviour
	ArrangedMiningTime Timestamp
	MiningDueTime      Timestamp
	// TimeSlotMilliseconds is the length of the mining window.
	TimeSlotMilliseconds int64
	// LimitMillisecondsOfMiningBlock is how long producing this block may take.
	LimitMillisecondsOfMiningBlock int64
	Hint                           CommandHint
}

// InvalidCommand instructs the miner not to produce anything.
func InvalidCommand() ConsensusCommand {
	return ConsensusCommand{
		Behaviour:                      Invalid,
		ArrangedMiningTime:             MaxTimestamp,
		MiningDueTime:                  MaxTimestamp,
		LimitMillisecondsOfMiningBlock: math.MaxInt32,
	}
}

func (c ConsensusCommand) IsInvalid() bool {
	return !c.Behaviour.Producible()
}

func (c ConsensusCommand) String() string {
	if c.IsInvalid() {
		return c.Behaviour.String()
	}
	return fmt.Sprintf("%s at %s due %s limit %dms", c.Behaviour, c.ArrangedMiningTime, c.MiningDueTime, c.LimitMillisecondsOfMiningBlock)
}
