// Package statsd emits the login bootstrap's metrics as DogStatsD lines.
//
// Every line carries the "service" tag and, when known, the "auth_mode" tag
// so dashboards can split real Keycloak logins from mock logins.
package statsd

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultPrefix is prepended to metric names when Options.Prefix is empty.
	DefaultPrefix = "clerk_login"
	// ServiceName is the value of the "service" tag on every line.
	ServiceName = "clerk-login"

	dialTimeout = 5 * time.Second
)

// Sink receives bootstrap metrics. Client and Recorder implement it.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Options configures Dial and NewRecorder.
type Options struct {
	Address  string // host:port of the StatsD agent, Dial only
	Prefix   string
	AuthMode string // value of the "auth_mode" tag, omitted when empty
	Logger   *slog.Logger
}

// encoder renders metrics in the DogStatsD line format.
type encoder struct {
	prefix string
	tags   map[string]string
}

func newEncoder(opts Options) encoder {
	prefix := strings.Trim(strings.TrimSpace(opts.Prefix), ".")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	tags := map[string]string{"service": ServiceName}
	if mode := strings.TrimSpace(opts.AuthMode); mode != "" {
		tags["auth_mode"] = mode
	}
	return encoder{prefix: prefix, tags: tags}
}

// line renders "<prefix>.<name>:<value>|<kind>|#k:v,..." with tags sorted by key.
// Call tags win over the default tags.
func (e encoder) line(name, value, kind string, tags map[string]string) string {
	merged := maps.Clone(e.tags)
	maps.Copy(merged, tags)

	var b strings.Builder
	b.WriteString(e.prefix)
	b.WriteByte('.')
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteString(value)
	b.WriteByte('|')
	b.WriteString(kind)
	b.WriteString("|#")
	for i, k := range slices.Sorted(maps.Keys(merged)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(merged[k])
	}
	return b.String()
}

func countValue(v int64) string { return strconv.FormatInt(v, 10) }

func gaugeValue(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func timingValue(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', -1, 64)
}

// Client writes metrics to a StatsD agent over UDP. A nil *Client discards
// everything, so callers never need to check whether metrics are enabled.
type Client struct {
	enc    encoder
	logger *slog.Logger

	mu   sync.Mutex
	conn net.Conn
}

var _ Sink = (*Client)(nil)

// Dial connects to the agent at opts.Address.
func Dial(opts Options) (*Client, error) {
	addr := strings.TrimSpace(opts.Address)
	if addr == "" {
		return nil, errors.New("statsd address is required")
	}
	conn, err := net.DialTimeout("udp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", addr, err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{enc: newEncoder(opts), logger: logger, conn: conn}, nil
}

func (c *Client) Count(name string, value int64, tags map[string]string) {
	if c == nil {
		return
	}
	c.write(c.enc.line(name, countValue(value), "c", tags))
}

func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	if c == nil {
		return
	}
	c.write(c.enc.line(name, gaugeValue(value), "g", tags))
}

func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	if c == nil {
		return
	}
	c.write(c.enc.line(name, timingValue(value), "ms", tags))
}

// Close releases the UDP socket. Later writes are dropped.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) write(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		c.logger.Debug("statsd write failed", "error", err, "line", line)
	}
}
