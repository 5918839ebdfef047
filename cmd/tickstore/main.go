package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/tailored-agentic-units/tickstore/host"
	"github.com/tailored-agentic-units/tickstore/medium"
	"github.com/tailored-agentic-units/tickstore/observability"
	"github.com/tailored-agentic-units/tickstore/store"
)

type cmdGet struct {
	Key  string `arg:"" help:"Key to read."`
	Slot int    `short:"s" default:"0" help:"Value slot, 0 to 34."`
}

type cmdSet struct {
	Key   string `arg:"" help:"Key to write."`
	Value string `arg:"" help:"Value to store."`
	Slot  int    `short:"s" default:"0" help:"Value slot, 0 to 34."`
}

type cliArgs struct {
	Config     string `short:"c" type:"existingfile" help:"Path to a JSON config file."`
	Medium     string `short:"m" help:"Medium kind: memory, file or bolt (overrides config)."`
	Path       string `short:"p" help:"Medium path (overrides config). Implies bolt when no kind is given."`
	RegionSize int    `help:"Region size for the memory medium (overrides config)."`
	Agents     int    `short:"a" help:"Active agents per cycle (overrides config)."`
	LogLevel   string `default:"warn" enum:"debug,info,warn,error" help:"Minimum level logged to stderr."`
	Verbose    bool   `short:"v" help:"Shorthand for --log-level=debug."`

	Get cmdGet `cmd:"" help:"Read the value stored under a key."`
	Set cmdSet `cmd:"" help:"Store a value under a key."`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, executes one command against a fresh host and returns
// the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var cli cliArgs
	exited := -1
	parser, err := kong.New(&cli,
		kong.Name("tickstore"),
		kong.Description("Read and write keys on a budgeted record medium."),
		kong.Exit(func(rc int) {
			if exited < 0 {
				exited = rc
			}
		}),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintf(stderr, "tickstore: %v\n", err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if exited >= 0 {
		return exited
	}
	if err != nil {
		fmt.Fprintf(stderr, "tickstore: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(&cli)
	if err != nil {
		fmt.Fprintf(stderr, "tickstore: %v\n", err)
		return 1
	}

	if cli.Verbose {
		cli.LogLevel = "debug"
	}
	level, err := observability.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "tickstore: %v\n", err)
		return 2
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level.SlogLevel()}))
	counter := observability.NewCountingObserver()
	observability.RegisterObserver("cli", observability.NewMultiObserver(
		observability.NewSlogObserver(logger),
		counter,
	))
	cfg.Observer = "cli"
	cfg.Store.Observer = "cli"

	d, err := host.Open(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "tickstore: %v\n", err)
		return 1
	}
	defer d.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		res  store.Result
		read bool
		key  string
	)
	err = d.Serve(ctx, func(ctx context.Context) error {
		var err error
		switch kctx.Command() {
		case "get <key>":
			read, key = true, cli.Get.Key
			res, err = d.Get(ctx, cli.Get.Key, store.Slot(cli.Get.Slot))
		case "set <key> <value>":
			key = cli.Set.Key
			res, err = d.Set(ctx, cli.Set.Key, cli.Set.Value, store.Slot(cli.Set.Slot))
		default:
			err = fmt.Errorf("unknown command %q", kctx.Command())
		}
		return err
	})
	logger.Debug("run complete",
		"cycles", counter.Count(store.EventCycleComplete),
		"activations", counter.Count(store.EventRegionActivate),
		"deferrals", counter.Count(store.EventOpDefer),
	)
	if err != nil {
		fmt.Fprintf(stderr, "tickstore: %v\n", err)
		return 1
	}

	if read && !res.Found {
		fmt.Fprintf(stderr, "tickstore: %s: not found\n", key)
		return 1
	}
	fmt.Fprintln(stdout, res.Value)
	return 0
}

// loadConfig merges the config file, if any, over defaults and applies flag
// overrides.
func loadConfig(cli *cliArgs) (*host.Config, error) {
	cfg := host.DefaultConfig()
	if cli.Config != "" {
		loaded, err := host.LoadConfig(cli.Config)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if cli.Path != "" {
		cfg.Medium.Path = cli.Path
		if cli.Medium == "" && cli.Config == "" {
			cfg.Medium.Kind = medium.KindBolt
		}
	}
	if cli.Medium != "" {
		cfg.Medium.Kind = cli.Medium
	}
	if cli.RegionSize > 0 {
		cfg.Medium.RegionSize = cli.RegionSize
	}
	if cli.Agents > 0 {
		cfg.Store.Agents = cli.Agents
	}
	return &cfg, nil
}
