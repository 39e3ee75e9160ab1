// Package main is the kioku CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/cli"
	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/extract"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/server"
	"github.com/hyperjump/kioku/internal/watcher"
	"github.com/hyperjump/kioku/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kioku/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	clientTimeout     = 5 * time.Minute
)

// loadConfig loads config from path. When path is the default and a config.yaml exists in
// the working directory, that file wins. A missing default file falls back to built-in
// defaults. Returns the config and the path it came from ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				path = local
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadEnv reads .env from the working directory when present, without overriding variables
// already set in the environment.
func loadEnv() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}
}

func serverURLDefault() string {
	if u := os.Getenv("KIOKU_SERVER"); u != "" {
		return u
	}
	return defaultServerURL
}

func main() {
	loadEnv()
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command, args := os.Args[1], os.Args[2:]
	var err error
	switch command {
	case "server":
		err = runServer(args)
	case "ingest":
		err = runIngest(args)
	case "retrieve":
		err = runRetrieve(args)
	case "list":
		err = runList(args)
	case "get":
		err = runGet(args)
	case "delete":
		err = runDelete(args)
	case "watch":
		err = runWatch(args)
	case "status":
		err = runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("kioku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("config_path", resolvedPath), zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchSvc := newWatcher(cfg, components, logger, cfg.Watch.Directories)
	if err := watchSvc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watchSvc.Stop()
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(components.Pipeline, components.Retriever, components.Store,
		components.Index, components.Gateway, cfg, logger,
		server.WithWatch(watchSvc, resolvedPath))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func newWatcher(cfg *config.Config, c *Components, logger *zap.Logger, dirs []string) *watcher.Watcher {
	return watcher.NewWatcher(c.Pipeline, dirs, cfg.Upload.SupportedTypes,
		watcher.WithLogger(utils.Component(logger, "watcher")),
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
	)
}

// ingestPaths expands args into files: directories are walked for supported extensions,
// plain files are passed through.
func ingestPaths(args []string, ex *extract.Extractor) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && ex.Supports(filepath.Ext(path)) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", serverURLDefault(), "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args, boolFlags))
	if fs.NArg() < 1 {
		return errors.New("usage: kioku ingest [flags] <file-or-directory>...")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	files, err := ingestPaths(fs.Args(), extract.NewExtractor())
	if err != nil {
		return err
	}
	client := cli.NewClient(*serverURL, clientTimeout)
	ctx := context.Background()
	failed := 0
	for _, path := range files {
		doc, err := client.Upload(ctx, path)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			continue
		}
		if format == cli.OutputJSON {
			_ = cli.WriteDocument(os.Stdout, doc, format)
			continue
		}
		fmt.Printf("%s -> %s (%d chunks)\n", path, doc.ID, doc.ChunkCount)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(files))
	}
	return nil
}

// buildQuery joins positional args into one query. Blank args yield "".
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// boolFlags lists flags that take no value, so reorderArgs does not swallow the next arg.
var boolFlags = map[string]bool{"debug": true}

// reorderArgs moves flags (and their values) in front of positional args so that the flag
// package sees them even when written after the query.
func reorderArgs(args []string, noValue map[string]bool) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") || a == "-" {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") || noValue[name] {
			continue
		}
		if i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(flags, positional...)
}

func runRetrieve(args []string) error {
	fs := flag.NewFlagSet("retrieve", flag.ExitOnError)
	serverURL := fs.String("server", serverURLDefault(), "server URL")
	topK := fs.Int("top-k", 0, "number of chunks to return (0 = server default)")
	threshold := fs.Float64("threshold", -2, "minimum cosine similarity in [-1, 1] (default: server setting)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args, boolFlags))

	query := buildQuery(fs.Args())
	if query == "" {
		return errors.New("usage: kioku retrieve [flags] <query>")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	req := models.RetrieveRequest{Query: query, TopK: *topK}
	if *threshold >= -1 {
		req.Threshold = threshold
	}
	if err := req.Validate(); err != nil {
		return err
	}
	resp, err := cli.NewClient(*serverURL, clientTimeout).Retrieve(context.Background(), req)
	if err != nil {
		return err
	}
	return cli.WriteRetrieveResponse(os.Stdout, resp, format)
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	serverURL := fs.String("server", serverURLDefault(), "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	docs, err := cli.NewClient(*serverURL, clientTimeout).ListDocuments(context.Background())
	if err != nil {
		return err
	}
	return cli.WriteDocuments(os.Stdout, docs, format)
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	serverURL := fs.String("server", serverURLDefault(), "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args, boolFlags))
	if fs.NArg() < 1 {
		return errors.New("usage: kioku get [flags] <document-id>")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	doc, err := cli.NewClient(*serverURL, clientTimeout).GetDocument(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	return cli.WriteDocument(os.Stdout, doc, format)
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", serverURLDefault(), "server URL")
	_ = fs.Parse(reorderArgs(args, boolFlags))
	if fs.NArg() < 1 {
		return errors.New("usage: kioku delete [flags] <document-id>")
	}
	id := fs.Arg(0)
	err := cli.NewClient(*serverURL, clientTimeout).DeleteDocument(context.Background(), id)
	if cli.IsNotFound(err) {
		return fmt.Errorf("document %s not found", id)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Document deleted: %s\n", id)
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", serverURLDefault(), "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	client := cli.NewClient(*serverURL, 30*time.Second)
	ctx := context.Background()
	st, err := client.Status(ctx)
	if err != nil {
		return err
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		return err
	}
	if format == cli.OutputText {
		if health, err := client.Health(ctx); err == nil {
			fmt.Printf("embedding_backend:  %s\n", health["embedding"])
		}
	}
	return nil
}

// runWatch either manages the server's watched directories (add, remove, list) or, given
// directories, runs a standalone watcher with its own in-process pipeline.
func runWatch(args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "add", "remove", "list":
			return runWatchRemote(args[0], args[1:])
		}
	}
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(reorderArgs(args, boolFlags))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dirs := fs.Args()
	if len(dirs) == 0 {
		dirs = cfg.Watch.Directories
	}
	if len(dirs) == 0 {
		return errors.New("usage: kioku watch [flags] <directory>... (or set watch.directories in config)")
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	w := newWatcher(cfg, components, logger, dirs)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	w.SyncExistingFiles()
	n, _ := components.Store.CountDocuments(ctx)
	logger.Info("initial sync complete", zap.Int("documents", n), zap.Int("embeddings", components.Index.Count()))
	<-ctx.Done()
	return nil
}

func runWatchRemote(sub string, args []string) error {
	fs := flag.NewFlagSet("watch "+sub, flag.ExitOnError)
	serverURL := fs.String("server", serverURLDefault(), "server URL")
	_ = fs.Parse(reorderArgs(args, boolFlags))
	client := cli.NewClient(*serverURL, 30*time.Second)
	ctx := context.Background()

	if sub == "list" {
		dirs, err := client.WatchList(ctx)
		if err != nil {
			return err
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
		return nil
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: kioku watch %s <path>", sub)
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return err
	}
	if sub == "add" {
		if err := client.WatchAdd(ctx, path); err != nil {
			return err
		}
		fmt.Printf("Added: %s\n", path)
		return nil
	}
	if err := client.WatchRemove(ctx, path); err != nil {
		return err
	}
	fmt.Printf("Removed: %s\n", path)
	return nil
}

func printUsage() {
	fmt.Println(`kioku - document ingestion and retrieval for LLM context

Usage:
  kioku server [flags]                 Start the HTTP server
  kioku ingest [flags] <path>...       Upload files (directories are walked)
  kioku retrieve [flags] <query>       Retrieve context for a query
  kioku list [flags]                   List documents, newest first
  kioku get [flags] <id>               Show one document
  kioku delete [flags] <id>            Delete a document and its embeddings
  kioku status [flags]                 Show document, index and backend status
  kioku watch [flags] <dir>...         Run a standalone watcher with its own index
  kioku watch <add|remove|list> [dir]  Manage the server's watched directories
  kioku version                        Show version
  kioku help                           Show this help

Server / Watch Flags:
  --config string    Config file path (default: /usr/local/etc/kioku/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging

Client Flags (ingest, retrieve, list, get, delete, status, watch add|remove|list):
  --server string    Server URL (default: $KIOKU_SERVER or http://localhost:8080)
  --output string    Output format: text or json (default: text)

Retrieve Flags:
  --top-k int        Number of chunks to return (default: server setting)
  --threshold float  Minimum cosine similarity in [-1, 1] (default: server setting)

Environment:
  KIOKU_EMBEDDING_API_KEY   API key for the openai embedding provider
  A .env file in the working directory is loaded when present.

Examples:
  kioku server --debug
  kioku ingest report.pdf notes/
  kioku retrieve "how are pods scheduled" --top-k 3
  kioku retrieve --threshold 0.5 --output json "deployment strategy"
  kioku delete 3f2c1e9a-...
  kioku watch ~/Documents/notes`)
}
