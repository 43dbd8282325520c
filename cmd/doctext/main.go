// Package main is the doctext CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/doctext/internal/cli"
	"github.com/hyperjump/doctext/internal/config"
	"github.com/hyperjump/doctext/internal/convert"
	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/metrics"
	"github.com/hyperjump/doctext/internal/models"
	"github.com/hyperjump/doctext/internal/server"
	"github.com/hyperjump/doctext/internal/watcher"
	"github.com/hyperjump/doctext/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/doctext/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When the default path
// does not exist either, built-in defaults are used and the returned path is empty.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := config.Default()
			if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
				return nil, "", err
			}
			if err := cfg.Validate(); err != nil {
				return nil, "", fmt.Errorf("invalid config: %w", err)
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Load .env file (silently ignore if it doesn't exist)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "convert":
		runConvert()
	case "config":
		runConfig()
	case "version", "--version", "-v":
		fmt.Printf("doctext version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (per-conversion details, config reloads)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, level, err := utils.NewLeveledLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Int64("max_body_bytes", cfg.Server.MaxBodyBytes),
	)

	m := metrics.New()
	svc := convert.NewService(extract.NewExtractor(), m, logger)
	srv := server.NewServer(svc, cfg, m, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if resolvedConfigPath != "" && cfg.WatchConfigOrDefault() {
		// onChange calls are serialized by the watcher, so current needs no lock.
		current := cfg
		watchSvc := watcher.NewWatcher(
			[]string{resolvedConfigPath},
			func(path string) {
				next, err := config.Load(path)
				if err != nil {
					logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
					return
				}
				applyReload(current, next, srv, level, *debug, logger)
				current = next
			},
			watcher.WithLogger(logger),
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Warn("config watcher not started", zap.String("path", resolvedConfigPath), zap.Error(err))
		}
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// bodyLimiter is the part of the server a config reload can change live.
type bodyLimiter interface {
	SetMaxBodyBytes(n int64)
}

// applyReload applies the live-reloadable settings of next (debug level and body
// limit) and logs settings that only take effect after a restart. forceDebug keeps
// debug logging on when it was requested with -debug.
func applyReload(prev, next *config.Config, srv bodyLimiter, level zap.AtomicLevel, forceDebug bool, logger *zap.Logger) {
	utils.SetDebug(level, next.Debug || forceDebug)
	srv.SetMaxBodyBytes(next.Server.MaxBodyBytes)
	logger.Info("config reloaded",
		zap.Bool("debug", next.Debug || forceDebug),
		zap.Int64("max_body_bytes", next.Server.MaxBodyBytes),
	)
	for _, name := range restartRequired(prev, next) {
		logger.Warn("config change requires restart", zap.String("setting", name))
	}
}

// restartRequired names the changed settings that are read only at startup.
func restartRequired(prev, next *config.Config) []string {
	var changed []string
	if prev.Server.Host != next.Server.Host || prev.Server.Port != next.Server.Port {
		changed = append(changed, "server.address")
	}
	if prev.Server.RequestTimeout != next.Server.RequestTimeout {
		changed = append(changed, "server.request_timeout")
	}
	if !reflect.DeepEqual(prev.Server.CORSOrigins, next.Server.CORSOrigins) {
		changed = append(changed, "server.cors_origins")
	}
	if prev.RateLimit != next.RateLimit {
		changed = append(changed, "rate_limit")
	}
	if prev.Metrics.Path != next.Metrics.Path || prev.Metrics.EnabledOrDefault() != next.Metrics.EnabledOrDefault() {
		changed = append(changed, "metrics")
	}
	return changed
}

// argsReorder moves every flag (and its value) ahead of the positional
// arguments so that fs.Parse sees them. Go's flag package stops at the first
// non-flag argument, so "doctext convert report.xlsx -output json" would
// otherwise leave -output unparsed. A flag defined on fs that is not boolean
// takes the next argument as its value unless written as -flag=value.
// Everything after "--" stays positional.
func argsReorder(fs *flag.FlagSet, args []string) []string {
	flags := make([]string, 0, len(args))
	var positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if takesValue(fs, name) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}

func takesValue(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return false
	}
	return true
}

func runConvert() {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, `server URL; use "" to convert in-process`)
	output := fs.String("output", string(cli.OutputText), "output format: text, json or compact")
	name := fs.String("name", "", "filename sent with the content (default: base name of the file)")
	timeout := fs.Duration("timeout", 60*time.Second, "request timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: doctext convert [flags] <file>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(fs, os.Args[2:]))
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	result, err := convertFile(ctx, *serverURL, fs.Arg(0), *name)
	if err != nil {
		var convErr *models.Error
		if errors.As(err, &convErr) {
			fmt.Fprintf(os.Stderr, "Conversion failed: %s\n", convErr.Message())
		} else {
			fmt.Fprintf(os.Stderr, "Conversion failed: %v\n", err)
		}
		os.Exit(1)
	}
	if err := cli.WriteResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// convertFile reads path and converts it, either through the server at serverURL
// or, when serverURL is empty, in-process with the same request body.
func convertFile(ctx context.Context, serverURL, path, name string) (*models.FileText, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	req := cli.NewConvertRequest(name, content)
	if serverURL != "" {
		return cli.ConvertViaHTTP(ctx, nil, serverURL, req)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	svc := convert.NewService(extract.NewExtractor(), nil, zap.NewNop())
	return svc.ConvertBody(ctx, body)
}

func runConfig() {
	if len(os.Args) < 3 || os.Args[2] != "init" {
		fmt.Println("Usage: doctext config init [-config path] [-force]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[3:])

	if err := initConfig(*configPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

// initConfig writes the default config to path, creating parent directories.
func initConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return config.Save(path, config.Default())
}

func printUsage() {
	fmt.Println(`doctext - Convert base64-encoded documents to plain text over HTTP

Usage:
  doctext server [flags]            Start the HTTP server
  doctext convert [flags] <file>    Convert a local file
  doctext config init [flags]       Write a default config file
  doctext version                   Show version
  doctext help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/doctext/config.yaml)
  --debug            Enable debug logging

Convert Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to convert in-process.
  --output string    Output format: text, json or compact (default: text)
  --name string      Filename to send (default: base name of the file); its extension picks the converter
  --timeout duration Request timeout (default: 60s)

Config Init Flags:
  --config string    Output path (default: ./config.yaml)
  --force            Overwrite an existing file

Environment:
  DOCTEXT_HOST, DOCTEXT_PORT, DOCTEXT_DEBUG, DOCTEXT_MAX_BODY_BYTES, DOCTEXT_CORS_ORIGINS
  override config values; a .env file in the working directory is loaded first.

Examples:
  doctext server
  doctext convert report.xlsx
  doctext convert --output json notes.docx
  doctext convert --server "" data.json
  doctext convert --name export.csv blob.bin
  doctext config init --config /usr/local/etc/doctext/config.yaml`)
}
