package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/lostmyescape/opsconsole/internal/config"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
)

const retryEvery = 2 * time.Second

// MustConnect blocks until the analytics replica answers a ping. It panics
// once cfg.MaxWait has passed without a successful connection.
func MustConnect(ctx context.Context, log *slog.Logger, cfg config.Clickhouse) clickhouse.Conn {
	const op = "storage.clickhouse.MustConnect"

	log = log.With(slog.String("op", op), slog.String("addr", cfg.Addr))

	ctx, cancel := context.WithTimeout(ctx, cfg.MaxWait)
	defer cancel()

	for attempt := 1; ; attempt++ {
		conn, err := connect(ctx, cfg)
		if err == nil {
			log.Info("analytics replica connected", slog.Int("attempt", attempt))
			return conn
		}
		log.Debug("analytics replica not ready", slog.Int("attempt", attempt), sl.Err(err))

		select {
		case <-ctx.Done():
			panic(fmt.Sprintf("%s: gave up after %d attempts: %v", op, attempt, err))
		case <-time.After(retryEvery):
		}
	}
}

// Options maps the config section onto driver options. Reads are bounded
// server-side so a heavy dashboard query cannot pin the replica.
func Options(cfg config.Clickhouse) *clickhouse.Options {
	protocol := clickhouse.HTTP
	if cfg.Protocol == "native" {
		protocol = clickhouse.Native
	}

	return &clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Protocol: protocol,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 30,
			"readonly":           1,
		},
		DialTimeout: 5 * time.Second,
	}
}

func connect(ctx context.Context, cfg config.Clickhouse) (clickhouse.Conn, error) {
	conn, err := clickhouse.Open(Options(cfg))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return conn, nil
}
