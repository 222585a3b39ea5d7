package clickhouse

import "time"

// ClientOption configures the warehouse client.
type ClientOption func(*ClientConfig)

// ClientConfig holds the connection settings for the admissions warehouse.
// Zero values fall back to the defaults in NewClient.
type ClientConfig struct {
	// endpoint
	Host     string
	Port     int
	Database string
	User     string
	Password string

	// pool sizing, passed through to database/sql
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// per-call limits
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	MaxExecution time.Duration

	// transport and write behavior
	Compression   string // lz4, zstd, gzip; empty disables compression
	HTTPTransport bool
	AsyncInsert   bool
	AsyncWait     bool
}

// WithAddress points the client at a server. The port is the native
// protocol port unless HTTP transport is selected.
func WithAddress(host string, port int) ClientOption {
	return func(c *ClientConfig) { c.Host, c.Port = host, port }
}

// WithDatabase selects the database.
func WithDatabase(name string) ClientOption {
	return func(c *ClientConfig) { c.Database = name }
}

// WithCredentials sets the login user and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) { c.User, c.Password = user, password }
}

// WithMaxConnections bounds the pool: open connections and idle spares.
func WithMaxConnections(open, idle int) ClientOption {
	return func(c *ClientConfig) { c.MaxOpenConns, c.MaxIdleConns = open, idle }
}

// WithTimeouts sets dial and read timeouts. History scans dominate the
// workload, so reads get their own knob; writes go through async_insert.
func WithTimeouts(dial, read time.Duration) ClientOption {
	return func(c *ClientConfig) { c.DialTimeout, c.ReadTimeout = dial, read }
}

// WithCompression sets the wire compression codec for block transfers.
func WithCompression(codec string) ClientOption {
	return func(c *ClientConfig) { c.Compression = codec }
}

// WithHTTP switches from the native protocol to HTTP, for proxies that
// cannot pass raw TCP.
func WithHTTP(enabled bool) ClientOption {
	return func(c *ClientConfig) { c.HTTPTransport = enabled }
}

// WithAsyncInsert enables server-side insert batching; wait controls whether
// writes block until the batch is flushed.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) { c.AsyncInsert, c.AsyncWait = enabled, wait }
}

// WithMaxExecutionTime caps per-query execution time on the server.
func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.MaxExecution = d }
}
