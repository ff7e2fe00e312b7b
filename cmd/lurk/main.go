package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/vburojevic/lurk/internal/cli"
	"github.com/vburojevic/lurk/internal/config"
)

func main() {
	defer func() {
		if p := recover(); p != nil {
			fmt.Fprintf(os.Stderr, "lurk: fatal: %v\n", p)
			os.Exit(1)
		}
	}()

	// Load configuration from files/environment
	var (
		cfg *config.Config
		err error
	)
	if path := configPathFromArgs(os.Args[1:]); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config values become flag defaults; flags still win
	ctx := kong.Parse(&c,
		kong.Name("lurk"),
		kong.Description("lurk: keep a messaging session alive, read status updates quietly and stay offline"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		cli.KongVars(cfg),
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}

// configPathFromArgs finds --config before kong parses, since the file
// supplies the flag defaults.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
