// Package main is the treedoc document inspector: it compiles a schema
// spec, validates a document file against it, and prints document stats.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/treedoc/internal/specfile"
	"github.com/dshills/treedoc/model"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
)

type options struct {
	schemaPath string
	docPath    string
	watch      bool
	verbose    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := validate(opts); err != nil {
		slog.Error("validation failed", "error", err)
		if !opts.watch {
			return 1
		}
	}

	if opts.watch {
		if err := watch(opts); err != nil {
			slog.Error("watch failed", "error", err)
			return 1
		}
	}
	return 0
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.schemaPath, "schema", "", "path to the schema spec file (.toml or .json)")
	flag.StringVar(&opts.docPath, "doc", "", "path to the document JSON file")
	flag.BoolVar(&opts.watch, "watch", false, "re-validate when either file changes")
	flag.BoolVar(&opts.verbose, "v", false, "verbose logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("treedoc %s\n", version)
		os.Exit(0)
	}
	if opts.schemaPath == "" || opts.docPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: treedoc -schema schema.toml -doc doc.json [-watch]")
		os.Exit(2)
	}
	return opts
}

// validate compiles the schema, loads the document, and checks it.
func validate(opts options) error {
	spec, err := specfile.Load(opts.schemaPath)
	if err != nil {
		return err
	}
	schema, err := model.NewSchema(spec)
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	slog.Debug("schema compiled", "nodes", len(schema.Nodes), "marks", len(schema.Marks))

	data, err := os.ReadFile(opts.docPath)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	doc, err := model.NodeFromJSON(schema, data)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	if err := doc.Check(); err != nil {
		return fmt.Errorf("checking document: %w", err)
	}

	printStats(doc)
	return nil
}

// printStats prints node counts by type and overall document size.
func printStats(doc *model.Node) {
	counts := map[string]int{}
	total := 0
	doc.Descendants(func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		counts[node.Type.Name]++
		total++
		return true
	})

	fmt.Printf("document: %s, content size %d, %d nodes\n", doc.Type.Name, doc.Content().Size(), total)
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %d\n", name, counts[name])
	}
}

// watch re-runs validation whenever the schema or document file changes.
func watch(opts options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// watch the parent directories; editors often replace files rather
	// than writing them in place
	dirs := map[string]bool{}
	for _, p := range []string{opts.schemaPath, opts.docPath} {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	targets := map[string]bool{
		filepath.Clean(opts.schemaPath): true,
		filepath.Clean(opts.docPath):    true,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	slog.Info("watching for changes", "schema", opts.schemaPath, "doc", opts.docPath)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("change detected", "file", event.Name, "op", event.Op.String())
			if err := validate(opts); err != nil {
				slog.Error("validation failed", "error", err)
			} else {
				slog.Info("document valid")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		case <-sig:
			slog.Info("shutting down")
			return nil
		}
	}
}
