package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"globesuggest/api/config"
)

// ErrClickHouseDisabled is returned when no ClickHouse host is configured.
var ErrClickHouseDisabled = errors.New("clickhouse not configured")

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

func NewClickHouseDB(cfg config.ClickHouse) (*ClickHouseClient, error) {
	if cfg.Host == "" {
		return nil, ErrClickHouseDisabled
	}
	if cfg.NativePort <= 0 || cfg.DBName == "" {
		return nil, fmt.Errorf("CLICKHOUSE_NATIVE_PORT and CLICKHOUSE_DB_NAME must be set when CLICKHOUSE_HOST is")
	}

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.NativePort)},
		Auth: clickhouse.Auth{
			Database: cfg.DBName,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "globesuggest-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s:%d (db %s)", cfg.Host, cfg.NativePort, cfg.DBName)
	return &ClickHouseClient{Conn: conn}, nil
}

// EnsureSchema creates the event mirror table if it does not exist.
func (c *ClickHouseClient) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS analytics_events (
			event_id UUID,
			event_type LowCardinality(String),
			session_id String,
			product_id String,
			user_id String,
			timestamp DateTime64(3, 'UTC'),
			page_url String,
			referrer String,
			device LowCardinality(String),
			country LowCardinality(String),
			duration_ms Int64,
			event_data String
		) ENGINE = MergeTree
		ORDER BY (event_type, timestamp)
	`
	if err := c.Conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create clickhouse analytics_events: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		log.Println("ClickHouse connection closed.")
	}
}
