package inter

import "errors"

// Behaviour is what a miner is told to do next.
type Behaviour uint8

const (
	Nothing Behaviour = iota
	UpdateValue
	TinyBlock
	NextRound
	NextTerm
	Invalid
)

var ErrUnknownBehaviour = errors.New("unknown consensus behaviour")

var behaviourNames = [...]string{
	Nothing:     "Nothing",
	UpdateValue: "UpdateValue",
	TinyBlock:   "TinyBlock",
	NextRound:   "NextRound",
	NextTerm:    "NextTerm",
	Invalid:     "Invalid",
}

func (b Behaviour) String() string {
	if int(b) < len(behaviourNames) {
		return behaviourNames[b]
	}
	return "Unknown"
}

// Producible reports whether a block can be produced with this behaviour.
func (b Behaviour) Producible() bool {
	switch b {
	case UpdateValue, TinyBlock, NextRound, NextTerm:
		return true
	}
	return false
}

// Terminates reports whether the behaviour ends the current round.
func (b Behaviour) Terminates() bool {
	return b == NextRound || b == NextTerm
}

func (b Behaviour) Valid() bool {
	return b <= Invalid
}
