package launcher

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-dpos/dpos"
	"github.com/rony4d/go-dpos/inter"
	"github.com/rony4d/go-dpos/integration"
	"github.com/rony4d/go-dpos/store"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Config aggregates every setting the launcher needs.
type Config struct {
	Node    NodeConfig
	Logging LoggingConfig
	Alert   AlertConfig
	Network NetworkConfig
	Rules   dpos.Rules
}

type NodeConfig struct {
	// DataDir holds the consensus database. Empty means memory only.
	DataDir     string
	RoundsCache int
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
}

type AlertConfig struct {
	SentryDSN string
}

type NetworkConfig struct {
	Preset string
	Miners int
	// Rounds is the round number simulate stops at.
	Rounds uint64
}

// -----------------------------------------------------------------------------
// Default config + builders
// -----------------------------------------------------------------------------

//	defaultConfig is built from DefaultConfig in defaults.go and the default
//	network preset, so the two never drift apart.

func defaultConfig() Config {
	d := DefaultConfig()
	preset, err := integration.GetPresetByName(d.Network.Preset)
	if err != nil {
		panic(err)
	}
	return Config{
		Node: NodeConfig{
			DataDir:     d.Node.DataDir,
			RoundsCache: d.Node.RoundsCache,
		},
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
		},
		Network: NetworkConfig{
			Preset: preset.Name,
			Miners: preset.Miners,
			Rounds: d.Network.Rounds,
		},
		Rules: preset.Rules,
	}
}

// MakeAllConfigs merges defaults, the optional config file, then CLI flag
// overrides into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if file := ctx.GlobalString("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyCLIOverrides(ctx, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid rules")
	}
	return cfg, nil
}

// Preset turns the network section into a runnable preset.
func (c Config) Preset() (integration.PresetConfig, error) {
	preset, err := integration.GetPresetByName(c.Network.Preset)
	if err != nil {
		return preset, err
	}
	preset.Rules = c.Rules.Copy()
	if c.Network.Miners > 0 {
		preset.Miners = c.Network.Miners
	}
	if c.Node.RoundsCache > 0 {
		preset.Store = store.StoreConfig{RoundsCacheSize: c.Node.RoundsCache}
	}
	preset.PollInterval = c.Rules.Mining.Interval / 4
	return preset, nil
}

// -----------------------------------------------------------------------------
// Config-file / CLI wiring
// -----------------------------------------------------------------------------

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config file")
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) error {
	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = resolvePath(ctx.GlobalString("datadir"))
	}
	if ctx.GlobalIsSet("cache.rounds") {
		cfg.Node.RoundsCache = ctx.GlobalInt("cache.rounds")
	}

	if ctx.GlobalIsSet("log.format") {
		cfg.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("alert.sentry") {
		cfg.Alert.SentryDSN = ctx.GlobalString("alert.sentry")
	}

	// A preset chosen on the command line replaces the rules of the file.
	if ctx.GlobalIsSet("network") {
		preset, err := integration.GetPresetByName(ctx.GlobalString("network"))
		if err != nil {
			return err
		}
		cfg.Network.Preset = preset.Name
		cfg.Network.Miners = preset.Miners
		cfg.Rules = preset.Rules
	}
	if ctx.GlobalIsSet("miners") {
		cfg.Network.Miners = ctx.GlobalInt("miners")
	}
	if ctx.GlobalIsSet("rounds") {
		cfg.Network.Rounds = ctx.GlobalUint64("rounds")
	}

	if ctx.GlobalIsSet("mining.interval") {
		cfg.Rules.Mining.Interval = inter.FromDuration(ctx.GlobalDuration("mining.interval"))
	}
	if ctx.GlobalIsSet("mining.tinyblocks") {
		cfg.Rules.Mining.MaxTinyBlocks = ctx.GlobalInt("mining.tinyblocks")
	}
	if ctx.GlobalIsSet("term.period") {
		cfg.Rules.Terms.Period = inter.FromDuration(ctx.GlobalDuration("term.period"))
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
