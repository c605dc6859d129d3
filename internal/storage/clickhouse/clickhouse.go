// Package clickhouse provides ClickHouse storage implementations.
package clickhouse

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Conn wraps a ClickHouse connection with common configuration.
type Conn struct {
	conn driver.Conn
}

// NewConn creates a new ClickHouse connection from a clickhouse:// DSN
// and verifies it with a ping.
func NewConn(ctx context.Context, dsn string) (*Conn, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	return newConn(ctx, u, strings.TrimPrefix(u.Path, "/"))
}

// NewConnWithDatabase connects to the DSN host but overrides the target
// database. An empty database connects to the server default, which is
// what the migration runner uses before the database exists.
func NewConnWithDatabase(ctx context.Context, dsn, database string) (*Conn, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	return newConn(ctx, u, database)
}

func newConn(ctx context.Context, u *url.URL, database string) (*Conn, error) {
	if u.Scheme != "clickhouse" {
		return nil, fmt.Errorf("unsupported clickhouse scheme %q", u.Scheme)
	}

	opts := &clickhouse.Options{
		Addr:        []string{u.Host},
		Auth:        clickhouse.Auth{Database: database},
		DialTimeout: 10 * time.Second,
	}
	if u.User != nil {
		opts.Auth.Username = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			opts.Auth.Password = pass
		}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &Conn{conn: conn}, nil
}

// Exec executes a single statement.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) error {
	return c.conn.Exec(ctx, query, args...)
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
