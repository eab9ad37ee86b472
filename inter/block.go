package inter

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

// BlockContext is what the host tells the engine about the block being built
// or executed.
type BlockContext struct {
	Height idx.Block
	Time   Timestamp
	// Sender is the pubkey of the block producer.
	Sender string
}

// TriggerInformation is supplied by a miner when it builds the consensus
// extra-data of its block.
type TriggerInformation struct {
	Pubkey          string
	Behaviour       Behaviour
	InValue         hash.Hash
	PreviousInValue hash.Hash
}

// TinyBlocksCounter tracks the latest block producer and how many more blocks
// in a row it may produce. A negative count marks a miner that kept producing
// past its allowance.
type TinyBlocksCounter struct {
	Pubkey      string
	BlocksCount int64
}

func (c TinyBlocksCounter) Exhausted(pubkey string) bool {
	return c.Pubkey != "" && c.Pubkey == pubkey && c.BlocksCount < 0
}
