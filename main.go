package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/milk9111/tilebake/compiler"
	"github.com/milk9111/tilebake/config"
	"github.com/milk9111/tilebake/logging"
)

type cliFlags struct {
	configFile *string
	envFile    *string
	format     *string
	padding    *int
	maxSize    *int
	rules      *string
	script     *string
	merge      *bool
	logLevel   *string
	logFile    *string
}

// defineFlags registers the command-line flags on fs. def supplies the
// defaults shown in -h.
func defineFlags(fs *flag.FlagSet, def config.Config) *cliFlags {
	return &cliFlags{
		configFile: fs.String("config", "", "config file (yaml, json or toml)"),
		envFile:    fs.String("env", ".env", "dotenv file loaded before reading TILEBAKE_* variables"),
		format:     fs.String("format", def.SceneFormat, "scene format: yaml or json"),
		padding:    fs.Int("padding", def.Padding, "pixels between packed images"),
		maxSize:    fs.Int("max-atlas-size", def.MaxAtlasSize, "largest atlas width or height in pixels"),
		rules:      fs.String("rules", def.Rules, "classifier rules file (defaults to the built-in rules)"),
		script:     fs.String("script", def.Script, "tengo classifier script, used instead of rules"),
		merge:      fs.Bool("merge-colliders", def.MergeColliders, "emit merged colliders for layers with collision=true"),
		logLevel:   fs.String("log-level", def.LogLevel, "log level: debug, info, warn or error"),
		logFile:    fs.String("log-file", def.LogFile, "also write logs to this rotating file"),
	}
}

// overrides maps only the flags given on the command line to config keys.
func (f *cliFlags) overrides(fs *flag.FlagSet) map[string]any {
	out := map[string]any{}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "format":
			out["scene_format"] = *f.format
		case "padding":
			out["padding"] = *f.padding
		case "max-atlas-size":
			out["max_atlas_size"] = *f.maxSize
		case "rules":
			out["rules"] = *f.rules
		case "script":
			out["script"] = *f.script
		case "merge-colliders":
			out["merge_colliders"] = *f.merge
		case "log-level":
			out["log_level"] = *f.logLevel
		case "log-file":
			out["log_file"] = *f.logFile
		}
	})
	return out
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <map.tmx> <output-dir> [prefix]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flags := defineFlags(flag.CommandLine, config.Default())
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || len(args) > 3 {
		usage()
		os.Exit(2)
	}

	overrides := flags.overrides(flag.CommandLine)
	if len(args) == 3 {
		overrides["prefix"] = args[2]
	}

	cfg, err := config.Load(*flags.configFile, *flags.envFile, overrides)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = compiler.Run(args[0], args[1], cfg, log)
	if err != nil {
		log.WithError(err).Error("tilebake: compilation failed")
	}
	_ = closer.Close()
	if err != nil {
		os.Exit(1)
	}
}
