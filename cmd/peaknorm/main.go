package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/R-a-dio/peaknorm/cmd"
	"github.com/R-a-dio/peaknorm/config"
	"github.com/R-a-dio/peaknorm/errors"
	"github.com/R-a-dio/peaknorm/ffmpeg"
	"github.com/R-a-dio/peaknorm/telemetry"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

type command struct {
	name       string
	synopsis   string
	usage      string
	setFlags   func(*flag.FlagSet)
	execute    cmd.ExecuteFn
	loadConfig func() (config.Config, error)
}

func (c command) Name() string     { return c.name }
func (c command) Synopsis() string { return c.synopsis }
func (c command) Usage() string    { return c.usage }
func (c command) SetFlags(f *flag.FlagSet) {
	if c.setFlags != nil {
		c.setFlags(f)
	}
}
func (c command) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	// extract extra arguments from the interface slice; it's fine if we panic here
	// because that is an unrecoverable programmer error
	errCh := args[0].(chan error)

	zerolog.Ctx(ctx).UpdateContext(func(zc zerolog.Context) zerolog.Context {
		return zc.Str("command", c.name)
	})

	positional, err := parseInterleaved(f)
	if err != nil {
		errCh <- errors.E(errors.Op("cmd/peaknorm."+c.name), errors.InvalidArgument, err)
		return subcommands.ExitSuccess
	}

	cfg, err := c.loadConfig()
	if err != nil {
		errCh <- err
		return subcommands.ExitSuccess
	}

	// setup telemetry if wanted
	if useTelemetry || cfg.Conf().Telemetry.Use {
		shutdown, err := telemetry.Init(ctx, cfg, c.name)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to initialize telemetry")
		} else {
			defer shutdown()
		}
	}

	ctx, span := otel.Tracer("peaknorm").Start(ctx, c.name)
	defer span.End()

	errCh <- c.execute(ctx, cfg, positional)
	return subcommands.ExitSuccess
}

// parseInterleaved returns the positional arguments of f after parsing any
// flags that follow them, such that `normalize song.mp3 -v` works the same
// as `normalize -v song.mp3`
func parseInterleaved(f *flag.FlagSet) ([]string, error) {
	var positional []string
	for f.NArg() > 0 {
		rest := f.Args()
		positional = append(positional, rest[0])
		if err := f.Parse(rest[1:]); err != nil {
			return nil, err
		}
	}
	return positional, nil
}

// configEnvVar is the environment variable holding a fallback config file path
const configEnvVar = "PEAKNORM_CONFIG"

// configFile will be filled with the -config flag value
var configFile string

// logLevel will be filled with the -loglevel flag value
var logLevel string

// verbose will be filled with the -v and -verbose flag values, both at the
// top-level and for the normalize command
var verbose bool

// useTelemetry will be filled with the -telemetry flag value
var useTelemetry bool

// stdout is where commands print their results
var stdout io.Writer = os.Stdout

func loadConfig() (config.Config, error) {
	return config.LoadFile(configFile, os.Getenv(configEnvVar))
}

var versionCmd = command{
	name:     "version",
	synopsis: "display version information of executable",
	usage: `version:
	display version information of executable
`,
	execute:    printVersion,
	loadConfig: func() (config.Config, error) { return config.Default(), nil },
}

func printVersion(context.Context, config.Config, []string) error {
	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(stdout, "%s %s\n", info.Path, info.Main.Version)
		for _, mod := range info.Deps {
			fmt.Fprintf(stdout, "\t%s %s\n", mod.Path, mod.Version)
		}
	} else {
		fmt.Fprintf(stdout, "%s %s\n", "peaknorm", "(devel)")
	}
	return nil
}

var configCmd = command{
	name:     "config",
	synopsis: "display current configuration",
	usage: `config:
	display current configuration
`,
	execute:    printConfig,
	loadConfig: loadConfig,
}

func printConfig(_ context.Context, cfg config.Config, _ []string) error {
	return cfg.Save(stdout)
}

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

// newCommander registers the top-level flags on fs and returns a commander
// with all commands registered
func newCommander(fs *flag.FlagSet, errOut io.Writer) *subcommands.Commander {
	commander := subcommands.NewCommander(fs, "peaknorm")
	commander.Output = stdout
	commander.Error = errOut

	fs.StringVar(&configFile, "config", "peaknorm.toml", "filepath to configuration file")
	fs.StringVar(&logLevel, "loglevel", "warn", "loglevel to use")
	fs.BoolVar(&verbose, "v", false, "print measured peak and applied gain")
	fs.BoolVar(&verbose, "verbose", false, "print measured peak and applied gain")
	fs.BoolVar(&useTelemetry, "telemetry", false, "write traces of ffmpeg runs")

	// add all our top-level flags as important flags to subcommands
	fs.VisitAll(func(f *flag.Flag) {
		commander.ImportantFlag(f.Name)
	})
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(versionCmd, "")
	commander.Register(configCmd, "")
	commander.Register(normalizeCmd, "audio")
	commander.Register(measureCmd, "audio")
	return commander
}

// run parses args, runs the command asked for and returns the exit code
// to use. Logs and command output go to out, user facing errors to errOut.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	stdout = out

	fs := flag.NewFlagSet("peaknorm", flag.ContinueOnError)
	fs.SetOutput(errOut)
	commander := newCommander(fs, errOut)

	if err := fs.Parse(args); err != nil {
		return cmd.ExitUsage
	}

	// a bare file argument means normalize, this keeps `peaknorm -v song.mp3`
	// working as a shorthand
	if rest := fs.Args(); len(rest) > 0 && !isCommand(commander, rest[0]) {
		if err := fs.Parse(append([]string{normalizeCmd.name}, rest...)); err != nil {
			return cmd.ExitUsage
		}
	}

	// setup logger
	var lo io.Writer = zerolog.ConsoleWriter{Out: out}
	logger := zerolog.New(lo).With().Timestamp().Logger()
	// change the level to what the flag told us
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		logger.Error().Err(err).Msg("failed to parse loglevel flag")
		return cmd.ExitUsage
	}
	logger = logger.Level(level)

	// setup root context
	ctx = logger.WithContext(ctx)

	err = executeCommand(ctx, commander)
	if err != nil {
		report(errOut, err)
		logger.Error().Err(err).Msg("exit")
	}

	return cmd.ExitCode(err)
}

// executeCommand runs the commander and returns the error of the command that
// ran, interrupting the process cancels the context given to the command
func executeCommand(ctx context.Context, commander *subcommands.Commander) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// buffered so commands never block on sending their result
	errCh := make(chan error, 1)

	code := commander.Execute(ctx, errCh)

	select {
	case err := <-errCh:
		return err
	default:
		// a subcommands builtin ran, or the arguments were unusable
		if code != subcommands.ExitSuccess {
			return cmd.WithStatusCode(nil, int(code))
		}
		return nil
	}
}

// isCommand reports if name is a registered command
func isCommand(commander *subcommands.Commander, name string) bool {
	var found bool
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		if c.Name() == name {
			found = true
		}
	})
	return found
}

// report prints the parts of err meant for the user to w
func report(w io.Writer, err error) {
	var toolErr *ffmpeg.ToolError
	if errors.As(err, &toolErr) && toolErr.Stderr != "" {
		fmt.Fprint(w, toolErr.Stderr)
	}

	if errors.Is(errors.PeakUnknown, err) {
		fmt.Fprintln(w, "Unable to determine peak amplitude.")
	}
}
