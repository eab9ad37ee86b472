package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags select the simulated network.

func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network preset (single|small|side|default)",
			Value: "default",
		},
		cli.IntFlag{
			Name:  "miners",
			Usage: "Number of genesis miners, overrides the preset",
		},
		cli.Uint64Flag{
			Name:  "rounds",
			Usage: "Simulate until this round number is reached",
			Value: 10,
		},
	}
}

// MiningFlags isolates the consensus rules which may be tuned locally.
// Every miner of a network must run with the same values.
func MiningFlags() []cli.Flag {
	return []cli.Flag{
		cli.DurationFlag{
			Name:  "mining.interval",
			Usage: "Length of one miner time slot",
		},
		cli.IntFlag{
			Name:  "mining.tinyblocks",
			Usage: "Maximum number of blocks a miner produces in its slot",
		},
		cli.DurationFlag{
			Name:  "term.period",
			Usage: "Length of a term, counted from the chain start",
		},
	}
}
