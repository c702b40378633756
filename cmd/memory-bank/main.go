package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alucardeht/memory-bank-mcp/internal/config"
	"github.com/alucardeht/memory-bank-mcp/internal/daemon"
	"github.com/alucardeht/memory-bank-mcp/internal/executor"
	"github.com/alucardeht/memory-bank-mcp/internal/journal"
	"github.com/alucardeht/memory-bank-mcp/internal/logger"
	"github.com/alucardeht/memory-bank-mcp/internal/mcp"
	"github.com/alucardeht/memory-bank-mcp/internal/tools"
	"github.com/alucardeht/memory-bank-mcp/internal/validation"
	"github.com/alucardeht/memory-bank-mcp/internal/version"
	"github.com/alucardeht/memory-bank-mcp/pkg/protocol"
)

func main() {
	ctx, stop := notifyShutdown(context.Background())
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("memory-bank", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", "", "Path to YAML config file")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (text, json)")
	socketPath := fs.String("socket", "", "Serve on a unix socket instead of stdio")
	connectPath := fs.String("connect", "", "Forward stdio to a server already listening on this socket")
	historyLimit := fs.Int("history", 0, "Print the N most recent journaled calls and exit")
	historyTool := fs.String("history-tool", "", "Limit --history to one tool")
	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "memory-bank: %v\n", err)
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	if *showHelp {
		printHelp(stdout)
		return 0
	}

	if *connectPath != "" && *socketPath != "" {
		fmt.Fprintln(stderr, "memory-bank: --connect and --socket cannot be combined")
		return 2
	}
	if *historyLimit < 0 {
		fmt.Fprintln(stderr, "memory-bank: --history must be positive")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *socketPath != "" {
		cfg.Server.Socket = *socketPath
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "memory-bank: %v\n", err)
		return 2
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	log := logger.New(logger.Config{Level: levelVar, Format: cfg.Log.Format, Output: stderr})
	prevDefault := slog.Default()
	slog.SetDefault(log)
	defer slog.SetDefault(prevDefault)

	if *historyLimit > 0 {
		if err := printHistory(ctx, cfg.Journal.Path, *historyLimit, *historyTool, stdout); err != nil {
			log.Error("failed to read journal", "error", err)
			return 1
		}
		return 0
	}

	if *connectPath != "" {
		if err := proxyStdio(ctx, *connectPath, stdin, stdout); err != nil {
			log.Error("proxy failed", "socket", *connectPath, "error", err)
			return 1
		}
		return 0
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Error("failed to ensure directories", "error", err)
		return 1
	}

	dispatcher, cleanup, err := buildDispatcher(cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		return 1
	}
	defer cleanup()

	log.Info("memory-bank starting", "version", version.Version, "executor", cfg.Executor.Kind)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if *configPath != "" && *logLevel == "" {
		watchLogLevel(ctx, *configPath, levelVar, log)
	}

	if cfg.Server.Socket != "" {
		err = serveSocket(ctx, cfg.Server.Socket, dispatcher)
	} else {
		err = serveStdio(ctx, dispatcher, stdin, stdout)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("transport failed", "error", err)
		return 1
	}

	log.Info("memory-bank stopped")
	return 0
}

func buildDispatcher(cfg *config.Config, log *slog.Logger) (*mcp.Dispatcher, func(), error) {
	registry, err := tools.NewMemoryBankRegistry()
	if err != nil {
		return nil, nil, err
	}

	exec, err := executor.FromConfig(cfg.Executor)
	if err != nil {
		return nil, nil, err
	}

	closers := []func() error{func() error { return executor.Close(exec) }}
	opts := []mcp.Option{mcp.WithLogger(log.With("component", "mcp"))}

	if cfg.Validation.Enabled {
		opts = append(opts, mcp.WithValidator(validation.NewValidator(registry, validation.Config{
			MaxParamsSize: cfg.Validation.MaxParamsSize,
		})))
	}

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			executor.Close(exec)
			return nil, nil, fmt.Errorf("failed to open journal: %w", err)
		}
		closers = append(closers, j.Close)
		opts = append(opts, mcp.WithRecorder(j))

		if cfg.Journal.MaxAge > 0 {
			removed, err := j.Prune(context.Background(), cfg.Journal.MaxAge)
			if err != nil {
				log.Warn("journal prune failed", "error", err)
			} else if removed > 0 {
				log.Info("journal pruned", "removed", removed, "max_age", cfg.Journal.MaxAge)
			}
		}
		if n, err := j.Count(context.Background()); err == nil {
			log.Debug("journal opened", "path", cfg.Journal.Path, "entries", n)
		}
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("shutdown error", "error", err)
			}
		}
	}

	return mcp.NewDispatcher(registry, exec, opts...), cleanup, nil
}

// watchLogLevel applies log level changes from the config file while the
// server runs. Other settings take effect on restart.
func watchLogLevel(ctx context.Context, path string, levelVar *slog.LevelVar, log *slog.Logger) {
	w, err := config.NewWatcher(path, config.DefaultReloadWindow, func(cfg *config.Config) {
		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			log.Warn("ignoring log level", "error", err)
			return
		}
		if level != levelVar.Level() {
			levelVar.Set(level)
			log.Info("log level changed", "level", level.String())
		}
	})
	if err != nil {
		log.Warn("config watch unavailable", "error", err)
		return
	}
	go w.Run(ctx)
}

// serveStdio returns when stdin reaches EOF or ctx is cancelled. A read
// blocked on stdin is abandoned on cancellation.
func serveStdio(ctx context.Context, dispatcher *mcp.Dispatcher, stdin io.Reader, stdout io.Writer) error {
	server := mcp.NewServer(dispatcher)

	done := make(chan error, 1)
	go func() {
		done <- server.ProcessStream(ctx, stdin, stdout)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

// proxyStdio forwards stdio to a server already listening on socketPath,
// one request at a time.
func proxyStdio(ctx context.Context, socketPath string, stdin io.Reader, stdout io.Writer) error {
	client, err := daemon.Dial(socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()
	client.SetTimeout(0)

	done := make(chan error, 1)
	go func() {
		done <- forward(client, stdin, stdout)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return nil
	}
}

func forward(client *daemon.Client, stdin io.Reader, stdout io.Writer) error {
	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	encoder := json.NewEncoder(stdout)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req protocol.JSONRPCRequest
		if err := json.Unmarshal(line, &req); err != nil {
			resp := &protocol.JSONRPCResponse{
				JSONRPC: "2.0",
				Error: &protocol.JSONRPCError{
					Code:    protocol.CodeParseError,
					Message: "Parse error",
				},
			}
			if err := encoder.Encode(resp); err != nil {
				return err
			}
			continue
		}

		if req.IsNotification() {
			if err := client.Notify(&req); err != nil {
				return err
			}
			continue
		}

		resp, err := client.SendRequest(&req)
		if err != nil {
			return err
		}
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func printHistory(ctx context.Context, path string, limit int, tool string, stdout io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no journal at %s: %w", path, err)
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Recent(ctx, tool, limit)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(stdout)
	for _, e := range entries {
		if err := encoder.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

func serveSocket(ctx context.Context, socketPath string, dispatcher *mcp.Dispatcher) error {
	d := daemon.NewDaemon(socketPath, dispatcher)
	if err := d.Start(); err != nil {
		return err
	}
	return d.Serve(ctx)
}

func printHelp(out io.Writer) {
	helpText := `memory-bank - MCP server for project decision memory

Usage:
  memory-bank [options]

Options:
  --config PATH       Load settings from a YAML file
  --log-level LEVEL   debug, info, warn or error (default info)
  --log-format FMT    text or json (default text)
  --socket PATH       Serve MCP on a unix socket instead of stdio
  --connect PATH      Forward stdio to a server started with --socket
  --history N         Print the N most recent journaled calls and exit
  --history-tool NAME Limit --history to one tool
  --version           Show version information
  --help              Show this help message

Logs are written to stderr. Stdout carries protocol traffic only.`
	fmt.Fprintln(out, helpText)
}
