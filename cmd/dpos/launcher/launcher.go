package launcher

import (
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-dpos/flags"
)

const version = "0.2.0"

var app = flags.NewApp(version, "DPoS round and term scheduling engine")

func init() {
	app.Flags = appFlags()
	app.Before = func(ctx *cli.Context) error {
		cfg, err := MakeAllConfigs(ctx)
		if err != nil {
			return err
		}
		return setupLogging(cfg.Logging)
	}
	app.Commands = []cli.Command{
		simulateCommand,
		inspectCommand,
		dumpConfigCommand,
	}
}

func appFlags() []cli.Flag {
	var all []cli.Flag
	all = append(all, flags.CommonFlags()...)
	all = append(all, flags.NodeFlags()...)
	all = append(all, flags.NetworkFlags()...)
	all = append(all, flags.MiningFlags()...)
	return all
}

// Launch parses args and runs the selected command.
func Launch(args []string) error {
	return app.Run(args)
}
