// adv2 - Advanced Duplicator 2 file tool
//
// Usage:
//
//	adv2 info <file>                         Show the info block and a summary
//	adv2 print <file>                        Print the decoded value tree
//	adv2 split <file> [-n chunks]            Split a dupe into smaller dupes
//	adv2 merge <manifest|bundle> -o <file>   Reassemble split dupes
//	adv2 export <file> --format json|yaml|cbor [--zstd]
//	adv2 import <file> -o <file>             Build a dupe from an export
//	adv2 bundle list|extract <bundle>        Inspect a chunk bundle
//	adv2 stats <file>...                     Compare encoded sizes
//	adv2 version                             Print version info
//
// Settings come from --config (YAML), ADV2_* environment variables and flags.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Neumenon/adv2/internal/config"
	"github.com/Neumenon/adv2/internal/logging"
)

const toolVersion = "0.3.0"

var cmdMain = &cobra.Command{
	Use:           "adv2",
	Short:         "Advanced Duplicator 2 file tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

var flagMain struct {
	Config string
}

// Loaded by setup before any command runs.
var (
	cfg    *config.Config
	logger = zerolog.Nop()
)

// bindings maps configuration keys to the flags that override them.
var bindings = map[string]*pflag.Flag{}

func init() {
	flags := cmdMain.PersistentFlags()
	flags.StringVarP(&flagMain.Config, "config", "c", "", "YAML configuration file")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "plain", "Log format (plain, json)")
	flags.Int64("max-payload", 0, "Largest decompressed data block accepted, in bytes")
	flags.Int("max-depth", 0, "Deepest table nesting accepted")

	bindFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	bindFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	bindFlag(config.KeyCodecMaxPayload, flags.Lookup("max-payload"))
	bindFlag(config.KeyCodecMaxDepth, flags.Lookup("max-depth"))
}

func main() {
	if err := cmdMain.Execute(); err != nil {
		fatalf("%v", err)
	}
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command) error {
	settings := viper.New()
	for key, f := range bindings {
		if err := settings.BindPFlag(key, f); err != nil {
			return err
		}
	}

	c, err := config.Load(settings, flagMain.Config)
	if err != nil {
		return err
	}
	cfg = c

	logger, err = logging.New(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.Debug().Str("command", cmd.Name()).Str("config", flagMain.Config).Msg("Loaded configuration")
	return nil
}

func bindFlag(key string, f *pflag.Flag) {
	if f == nil {
		panic("adv2: binding missing flag for " + key)
	}
	bindings[key] = f
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
