package launcher

// Defaults bundles the baseline values the launcher uses before the config
// file and flags override them. Consensus rules come from the network preset.

type Defaults struct {
	Node    NodeDefaults
	Network NetworkDefaults
	Logging LoggingDefaults
}

type NodeDefaults struct {
	DataDir     string //	Consensus database root. Empty keeps the chain in memory and loses it on exit.
	RoundsCache int    //	Decoded rounds kept in memory. The engine reads the current and previous round on every call.
}

type NetworkDefaults struct {
	Preset string //	Named network profile (single, small, side, default), see integration.GetPresetByName.
	Rounds uint64 //	Round number simulate runs to.
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    //	Log level numeric (0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace).
	Format    string //	Log output format (text vs json).
	Color     bool   //	Whether to use ANSI color codes in logs (best disabled when piping to files).
}

func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			RoundsCache: 64,
		},
		Network: NetworkDefaults{
			Preset: "default",
			Rounds: 10,
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     false,
		},
	}
}
