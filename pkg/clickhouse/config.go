package clickhouse

import (
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Config describes one ClickHouse server. Zero values take the defaults
// below.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	// HTTP selects the HTTP interface instead of the native protocol.
	HTTP bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	// WriteTimeout bounds a whole InsertBatch call.
	WriteTimeout time.Duration

	AsyncInsert        bool
	WaitForAsyncInsert bool
	MaxExecutionTime   time.Duration
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 9000
		if c.HTTP {
			c.Port = 8123
		}
	}
	if c.Database == "" {
		c.Database = "jarvis"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// options maps Config onto the driver options. Query settings are sent
// with every query. Sessions start in "default" because Database may not
// exist yet; callers qualify table names with it.
func (c Config) options() *ch.Options {
	settings := ch.Settings{}
	if c.MaxExecutionTime > 0 {
		settings["max_execution_time"] = int(c.MaxExecutionTime / time.Second)
	}
	if c.AsyncInsert {
		settings["async_insert"] = 1
		if c.WaitForAsyncInsert {
			settings["wait_for_async_insert"] = 1
		}
	}
	proto := ch.Native
	if c.HTTP {
		proto = ch.HTTP
	}
	return &ch.Options{
		Protocol: proto,
		Addr:     []string{net.JoinHostPort(c.Host, strconv.Itoa(c.Port))},
		Auth: ch.Auth{
			Database: "default",
			Username: c.User,
			Password: c.Password,
		},
		Settings:        settings,
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.ReadTimeout,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		Compression:     &ch.Compression{Method: ch.CompressionLZ4},
	}
}
