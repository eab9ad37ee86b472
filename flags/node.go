package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NodeFlags holds knobs specific to the local node instance.

func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "datadir",
			Usage: "Data directory of the consensus database (memory only if empty)",
		},
		cli.IntFlag{
			Name:  "cache.rounds",
			Usage: "Number of rounds kept decoded in memory",
			Value: 64,
		},
	}
}
