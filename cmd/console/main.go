package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/lostmyescape/opsconsole/internal/config"
	"github.com/lostmyescape/opsconsole/internal/console"
	"github.com/lostmyescape/opsconsole/internal/console/charts"
	"github.com/lostmyescape/opsconsole/internal/console/client"
	"github.com/lostmyescape/opsconsole/internal/console/connectivity"
	"github.com/lostmyescape/opsconsole/internal/console/debounce"
	"github.com/lostmyescape/opsconsole/internal/console/loading"
	"github.com/lostmyescape/opsconsole/internal/console/timers"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/handlers/slogpretty"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const usage = `commands:
  view <dashboard|searches|clicks|users|tickets>
  filter <key> [value]      set or clear a filter on the current view
  page <n>
  resolve <ticket_id> [resolved_by]
  status <ticket_id> <open|in-progress|resolved>
  note <ticket_id> <text>
  hide | show               suspend or resume auto-refresh
  dismiss                   hide the error banner
  quit`

func main() {
	cfg := config.MustLoadConsole()

	log := setupLogger(cfg.Env)

	clock := clockwork.NewRealClock()
	screen := newTerminalScreen(os.Stdout)

	var monitor *connectivity.Monitor

	api, err := client.New(log, cfg.API.BaseURL, cfg.API.Timeout, cfg.API.Token,
		client.WithNetworkObserver(func(online bool) {
			if monitor != nil {
				monitor.ReportEnvironment(online)
			}
		}),
	)
	if err != nil {
		log.Error("invalid api config", sl.Err(err))
		os.Exit(1)
	}

	var coord *console.Coordinator

	monitor = connectivity.New(log, clock, api, cfg.ProbeInterval, func(n connectivity.Notice) {
		coord.HandleNotice(n)
	})

	coord = console.New(console.Deps{
		Log:          log,
		API:          api,
		Screen:       screen,
		Timers:       timers.New(clock),
		Debounce:     debounce.New(clock, cfg.Debounce),
		Loading:      loading.New(screen.SetLoading),
		Charts:       charts.New(),
		Connectivity: monitor,
	}, console.Intervals{
		Dashboard: cfg.Refresh.Dashboard,
		Tickets:   cfg.Refresh.Tickets,
		Lists:     cfg.Refresh.Lists,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting console", slog.String("api", cfg.API.BaseURL))

	coord.Start(ctx, console.ViewDashboard)
	fmt.Fprintln(os.Stdout, usage)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if quit := execute(coord, screen, line); quit {
				break loop
			}
		}
	}

	coord.Shutdown()
}

// execute runs one operator command and reports whether the console should exit.
func execute(c *console.Coordinator, screen *terminalScreen, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "quit", "exit":
		return true

	case "view":
		if len(args) != 1 {
			break
		}
		v, err := console.ParseView(args[0])
		if err != nil {
			screen.ShowNotice(err.Error())
			return false
		}
		c.Navigate(v)
		return false

	case "filter":
		switch len(args) {
		case 1:
			c.SetFilter(c.Active(), args[0], "")
		case 2:
			c.SetFilter(c.Active(), args[0], args[1])
		default:
			screen.ShowNotice("usage: filter <key> [value]")
		}
		return false

	case "page":
		if len(args) != 1 {
			break
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			break
		}
		c.SetPage(c.Active(), n)
		return false

	case "resolve":
		if len(args) < 1 {
			break
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			break
		}
		patch := url.Values{"status": {"resolved"}}
		if len(args) > 1 {
			patch.Set("resolved_by", args[1])
		}
		c.UpdateTicket(id, patch)
		return false

	case "status":
		if len(args) != 2 {
			break
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			break
		}
		c.UpdateTicket(id, url.Values{"status": {args[1]}})
		return false

	case "note":
		if len(args) < 2 {
			break
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			break
		}
		c.UpdateTicket(id, url.Values{"admin_notes": {strings.Join(args[1:], " ")}})
		return false

	case "hide":
		c.Focus(false)
		return false

	case "show":
		c.Focus(true)
		return false

	case "dismiss":
		c.DismissBanner()
		return false
	}

	screen.ShowNotice("unknown command, " + usage)

	return false
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}

	return slog.New(opts.NewPrettyHandler(os.Stderr))
}
