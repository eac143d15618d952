// smartdraw serves the AI diagram generation API and exposes its
// deterministic helpers (mindmap layout, arrow optimization, JSON repair)
// on the command line and as MCP tools.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/diagram"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/mindmap"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/config"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/observability"
	"github.com/matiasleandrokruk/smartdraw/internal/mcptools"
	"github.com/matiasleandrokruk/smartdraw/internal/server"
	"github.com/matiasleandrokruk/smartdraw/internal/version"
	"github.com/matiasleandrokruk/smartdraw/pkg/jsonrepair"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2

	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("smartdraw", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "smartdraw: %v\n", err) //nolint:errcheck
		printHelp(stderr)
		return exitUsage
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String()) //nolint:errcheck
		return exitOK
	}
	if *showHelp {
		printHelp(stdout)
		return exitOK
	}

	c := cli{stdin: stdin, stdout: stdout, stderr: stderr}
	rest := fs.Args()
	if len(rest) == 0 {
		printHelp(stderr)
		return exitUsage
	}

	switch rest[0] {
	case "serve":
		return c.serve(ctx, rest[1:])
	case "layout":
		return c.layout(rest[1:])
	case "optimize":
		return c.optimize(rest[1:])
	case "repair":
		return c.repair(rest[1:])
	case "mcp":
		return c.mcp(ctx, rest[1:])
	case "version":
		fmt.Fprintln(stdout, version.String()) //nolint:errcheck
		return exitOK
	default:
		fmt.Fprintf(stderr, "smartdraw: unknown command %q\n", rest[0]) //nolint:errcheck
		printHelp(stderr)
		return exitUsage
	}
}

func (c cli) serve(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "Path to smartdraw.yaml")
	port := fs.Int("port", 0, "Override http.port")
	if err := fs.Parse(args); err != nil {
		return c.usage("serve", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return c.fail(err)
	}
	if *port > 0 {
		cfg.HTTP.Port = *port
	}
	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return c.fail(err)
	}
	defer logger.Sync() //nolint:errcheck

	srv, err := server.New(ctx, cfg, logger, version.Version)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return exitFailure
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
			_ = srv.Shutdown(context.Background())
			return exitFailure
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return exitFailure
	}
	return exitOK
}

func (c cli) layout(args []string) int {
	fs := flag.NewFlagSet("layout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	centerX := fs.Float64("center-x", 0, "x coordinate of the root node")
	centerY := fs.Float64("center-y", 0, "y coordinate of the root node")
	maxDepth := fs.Int("max-depth", mindmap.DefaultMaxDepth, "Maximum nesting depth")
	if err := fs.Parse(args); err != nil {
		return c.usage("layout", err)
	}
	data, code := c.readInput("layout", fs.Args())
	if code != exitOK {
		return code
	}

	doc, err := mindmap.Decode(data)
	if err != nil {
		return c.fail(err)
	}
	opts := mindmap.LayoutOptions{Center: diagram.Point{X: *centerX, Y: *centerY}}
	elements, err := mindmap.ToElements(doc, mindmap.NewValidator(*maxDepth), opts)
	if err != nil {
		return c.fail(err)
	}
	return c.writeJSON(elements)
}

func (c cli) optimize(args []string) int {
	data, code := c.readInput("optimize", args)
	if code != exitOK {
		return code
	}
	fmt.Fprintln(c.stdout, diagram.OptimizeCode(string(data), nil)) //nolint:errcheck
	return exitOK
}

func (c cli) repair(args []string) int {
	data, code := c.readInput("repair", args)
	if code != exitOK {
		return code
	}
	value, err := jsonrepair.SafeParse(string(data))
	if err != nil {
		return c.fail(err)
	}
	return c.writeJSON(value)
}

func (c cli) mcp(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	maxDepth := fs.Int("max-depth", mindmap.DefaultMaxDepth, "Maximum mindmap nesting depth")
	logLevel := fs.String("log-level", "warn", "Log level (logs go to stderr)")
	if err := fs.Parse(args); err != nil {
		return c.usage("mcp", err)
	}
	logger, err := observability.NewLogger(*logLevel, "json")
	if err != nil {
		return c.fail(err)
	}
	defer logger.Sync() //nolint:errcheck

	tools := mcptools.New(mindmap.NewValidator(*maxDepth), jsonrepair.Default, logger)
	if err := mcptools.Serve(ctx, tools.NewServer(version.Version)); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server stopped", zap.Error(err))
		return exitFailure
	}
	return exitOK
}

// readInput reads the single file argument, or stdin for "-".
func (c cli) readInput(cmd string, args []string) ([]byte, int) {
	if len(args) != 1 {
		return nil, c.usage(cmd, fmt.Errorf("expected one file argument (use - for stdin)"))
	}
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(c.stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, c.fail(err)
	}
	return data, exitOK
}

func (c cli) writeJSON(v any) int {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return c.fail(err)
	}
	return exitOK
}

func (c cli) usage(cmd string, err error) int {
	fmt.Fprintf(c.stderr, "smartdraw %s: %v\n", cmd, err) //nolint:errcheck
	return exitUsage
}

func (c cli) fail(err error) int {
	fmt.Fprintf(c.stderr, "smartdraw: %v\n", err) //nolint:errcheck
	return exitFailure
}

func printHelp(out io.Writer) {
	helpText := `smartdraw - AI diagram generation for the canvas

Usage:
  smartdraw [options] <command> [arguments]

Options:
  --version    Show version information
  --help       Show this help message

Commands:
  serve [--config file] [--port n]        Start the HTTP API
  layout [--center-x x] [--center-y y] <file|->
                                          Lay out a JSON or YAML mindmap
  optimize <file|->                       Snap bound arrows in an element array
  repair <file|->                         Repair JSON found in model output
  mcp [--max-depth n]                     Serve the canvas tools over MCP stdio

Examples:
  smartdraw --version
  smartdraw serve --port 8080
  smartdraw layout mindmap.yaml > elements.json
  pbpaste | smartdraw repair -`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
