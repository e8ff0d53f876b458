package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erayaindia/eraya-ops-hub/internal/config"
	"github.com/erayaindia/eraya-ops-hub/internal/gateway"
	"github.com/erayaindia/eraya-ops-hub/internal/query"
	"github.com/erayaindia/eraya-ops-hub/internal/sync"
	"github.com/erayaindia/eraya-ops-hub/internal/tui"
	"github.com/erayaindia/eraya-ops-hub/internal/validate"
)

const version = "0.1.0"

var (
	configPath  = flag.String("config", "", "path to configuration file (JSON)")
	apiBaseURL  = flag.String("api", "", "API base URL (overrides config)")
	resource    = flag.String("resource", "users", "collection to open: users or tickets")
	restoreURL  = flag.String("url", "", "query string to restore, e.g. \"q=asha&page=2\"")
	logFile     = flag.String("log-file", "", "write logs to this file (default: discard)")
	showVersion = flag.Bool("version", false, "show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("opshub-console version %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *apiBaseURL != "" {
		cfg.APIBaseURL = *apiBaseURL
	}
	if cfg.APIBaseURL == "" {
		fmt.Fprintln(os.Stderr, "an API base URL is required")
		os.Exit(1)
	}

	setupLogging(cfg, *logFile)

	var (
		schema     query.Schema
		basePath   string
		title      string
		columns    []tui.Column
		formFields []string
		validator  validate.Func
	)
	switch *resource {
	case "users":
		schema = query.Users()
		basePath = "/api/users"
		title = "User Directory"
		columns = tui.UserColumns()
		formFields = tui.UserFormFields()
		validator = validate.User
	case "tickets":
		schema = query.Tickets()
		basePath = "/api/tickets"
		title = "Support Tickets"
		columns = tui.TicketColumns()
		formFields = tui.TicketFormFields()
		validator = validate.Ticket
	default:
		fmt.Fprintf(os.Stderr, "unknown resource %q (want users or tickets)\n", *resource)
		os.Exit(1)
	}

	client := gateway.NewClient(cfg.APIBaseURL)
	res := gateway.NewResource(client, basePath)

	ctrl := sync.New(res, schema, sync.Options{
		SearchDebounce:  config.Duration(cfg.SearchDebounce, 300*time.Millisecond),
		RefreshInterval: config.Duration(cfg.RefreshInterval, 30*time.Second),
		StalenessAfter:  config.Duration(cfg.StalenessThreshold, 60*time.Second),
		Validate:        validator,
	})
	if *restoreURL != "" {
		v, err := url.ParseQuery(*restoreURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -url value: %v\n", err)
			os.Exit(1)
		}
		ctrl.Restore(query.Decode(v, schema))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	prog := tea.NewProgram(
		tui.NewModel(ctrl, title, columns, formFields),
		tea.WithAltScreen(),
	)

	// Pump controller snapshots into the running program.
	renderer := tui.NewRenderer(prog)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-ctrl.Snapshots():
				renderer.Render(s)
			}
		}
	}()

	if _, err := prog.Run(); err != nil {
		log.Error().Err(err).Msg("console exited with error")
		os.Exit(1)
	}
}

// setupLogging sends logs to a file or discards them. The terminal belongs
// to the table view, so stderr logging would tear the screen.
func setupLogging(cfg *config.Config, path string) {
	var out io.Writer = io.Discard
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			os.Exit(1)
		}
		out = f
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "opshub-console").Logger()

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
}
