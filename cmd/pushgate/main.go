package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/pushgate/internal/allowlist"
	"github.com/mattjoyce/pushgate/internal/config"
	"github.com/mattjoyce/pushgate/internal/dispatch"
	"github.com/mattjoyce/pushgate/internal/doctor"
	"github.com/mattjoyce/pushgate/internal/execlog"
	"github.com/mattjoyce/pushgate/internal/hook"
	"github.com/mattjoyce/pushgate/internal/lock"
	"github.com/mattjoyce/pushgate/internal/log"
	"github.com/mattjoyce/pushgate/internal/storage"
	"github.com/mattjoyce/pushgate/internal/tui/watch"
	"github.com/mattjoyce/pushgate/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "doctor":
		os.Exit(runDoctor(args))
	case "watch":
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("pushgate version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`pushgate - GitHub push-webhook listener that runs local deploy hooks

Usage:
  pushgate <command> [flags]

Commands:
  start     Start the webhook listener in foreground
  doctor    Validate configuration and hook installation
  watch     Live TUI view of a running instance
  version   Show version information
  help      Show this help message

Use 'pushgate <command> -h' for command-specific flags.
`)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml (optional; env vars work alone)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pushgate: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	// Every startup dependency below is load-bearing: a listener missing
	// any of them would accept requests it cannot act on, so each failure
	// halts the process before it serves traffic.
	allow, err := allowlist.Fetch(ctx, http.DefaultClient, cfg.GitHub.MetaURL)
	if err != nil {
		logger.Error("cannot obtain allowlist, refusing to start", "error", err)
		return 1
	}
	logger.Info("allowlist loaded", "ranges", allow.Len())

	hooks, err := hook.Discover(cfg.Hooks.Dir, func(level, msg string, kv ...any) {
		switch level {
		case "debug":
			logger.Debug(msg, kv...)
		case "warn":
			logger.Warn(msg, kv...)
		default:
			logger.Info(msg, kv...)
		}
	})
	if err != nil {
		logger.Error("hook discovery failed, refusing to start", "error", err)
		return 1
	}

	var store execlog.Store
	if cfg.State.Path != "" {
		instanceLock, err := lock.Acquire(cfg.State.Path + ".lock")
		if err != nil {
			logger.Error("cannot acquire instance lock", "error", err)
			return 1
		}
		defer instanceLock.Release()

		db, err := storage.Open(ctx, cfg.State.Path)
		if err != nil {
			logger.Error("cannot open state database", "error", err)
			return 1
		}
		defer db.Close()
		store = storage.NewLastRunStore(db)
	}

	execLog, err := execlog.New(ctx, store)
	if err != nil {
		logger.Error("cannot initialize execution log", "error", err)
		return 1
	}

	dispatcher := dispatch.New(hooks, execLog, cfg.Hooks.Timeout)
	server := webhook.New(cfg, allow, hooks, dispatcher, execLog, log.WithComponent("webhook"))

	logger.Info("all systems operational, beginning application loop",
		"version", version, "hooks", len(hooks), "branches", cfg.GitHub.Branches)

	if err := server.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

func runDoctor(args []string) int {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml")
	jsonOut := fs.Bool("json", false, "emit the report as JSON")
	live := fs.Bool("live", false, "also fetch the live allowlist")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		// The doctor should still report on a config that fails to load.
		fmt.Fprintf(os.Stderr, "pushgate doctor: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate(context.Background(), doctor.Options{
		CheckAllowlist: *live,
	})

	if *jsonOut {
		json.NewEncoder(os.Stdout).Encode(result)
	} else {
		printDoctorReport(result)
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func printDoctorReport(r *doctor.Result) {
	for _, e := range r.Errors {
		fmt.Printf("ERROR   [%s] %s: %s\n", e.Category, e.Field, e.Message)
	}
	for _, w := range r.Warnings {
		fmt.Printf("WARNING [%s] %s: %s\n", w.Category, w.Field, w.Message)
	}
	if r.Valid {
		fmt.Println("OK: installation looks healthy")
	} else {
		fmt.Printf("FAILED: %d error(s)\n", len(r.Errors))
	}
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	url := fs.String("url", "http://127.0.0.1:8000", "base URL of the running instance")
	fs.Parse(args)

	p := tea.NewProgram(watch.New(*url))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "pushgate watch: %v\n", err)
		return 1
	}
	return 0
}
