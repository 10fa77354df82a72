package logmap

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
	schemeGRPC  = "grpc"
	schemeEtcd  = "etcd"
	schemeZK    = "zk"

	defaultDialTimeout = 5 * time.Second
	defaultEtcdPrefix  = "/logwal"
	defaultZKRoot      = "/logwal"
	defaultBackoff     = 100 * time.Millisecond
)

type dialOptions struct {
	timeout    time.Duration
	logger     *slog.Logger
	httpClient *http.Client
	grpcOpts   []grpc.DialOption
	retries    int
	backoff    time.Duration
}

type DialOption func(*dialOptions)

// WithTimeout bounds transport setup and the reachability ping.
func WithTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.timeout = d }
}

func WithLogger(l *slog.Logger) DialOption {
	return func(o *dialOptions) { o.logger = l }
}

func WithHTTPClient(c *http.Client) DialOption {
	return func(o *dialOptions) { o.httpClient = c }
}

func WithGRPCDialOptions(opts ...grpc.DialOption) DialOption {
	return func(o *dialOptions) { o.grpcOpts = append(o.grpcOpts, opts...) }
}

// WithRetry makes the HTTP transport retry requests that never reached the
// server, up to n times, doubling the wait from backoff each attempt.
func WithRetry(n int, backoff time.Duration) DialOption {
	return func(o *dialOptions) {
		o.retries = n
		o.backoff = backoff
	}
}

func newDialOptions(opts []DialOption) dialOptions {
	o := dialOptions{
		timeout: defaultDialTimeout,
		logger:  slog.Default(),
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}
	return o
}

type target struct {
	scheme string
	hosts  []string
	path   string
}

// parseAddr splits "scheme://h1,h2/path". A bare "host:port" means HTTP.
func parseAddr(addr string) (target, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return target{}, fmt.Errorf("%w: empty address", ErrBadAddress)
	}

	scheme, rest, ok := strings.Cut(addr, "://")
	if !ok {
		scheme, rest = schemeHTTP, addr
	}
	scheme = strings.ToLower(scheme)

	hostPart, path, _ := strings.Cut(rest, "/")
	path = strings.Trim(path, "/")

	var hosts []string
	for _, h := range strings.Split(hostPart, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return target{}, fmt.Errorf("%w: no host in %q", ErrBadAddress, addr)
	}

	switch scheme {
	case schemeHTTP, schemeHTTPS, schemeGRPC:
		if len(hosts) != 1 {
			return target{}, fmt.Errorf("%w: %s takes one host, got %d", ErrBadAddress, scheme, len(hosts))
		}
	case schemeEtcd, schemeZK:
	default:
		return target{}, fmt.Errorf("%w: unknown scheme %q", ErrBadAddress, scheme)
	}

	if scheme != schemeHTTP && scheme != schemeHTTPS {
		for _, h := range hosts {
			if _, _, err := net.SplitHostPort(h); err != nil {
				return target{}, fmt.Errorf("%w: %q: %v", ErrBadAddress, h, err)
			}
		}
	}

	return target{scheme: scheme, hosts: hosts, path: path}, nil
}

func (t target) baseURL() string {
	u := t.scheme + "://" + t.hosts[0]
	if t.path != "" {
		u += "/" + t.path
	}
	return u
}

func (t target) prefix(def string) string {
	if t.path == "" {
		return def
	}
	return "/" + t.path
}

// Dial connects to the map at addr and checks that it answers before
// returning. Every failure wraps ErrConnect.
//
//	http://host:port, https://host:port, host:port   HTTP
//	grpc://host:port                                 gRPC
//	etcd://host:port[,host:port]/prefix              etcd v3
//	zk://host:port[,host:port]/root                  HTTP node found in ZooKeeper,
//	                                                 followed as membership changes
func Dial(ctx context.Context, addr string, opts ...DialOption) (Map, error) {
	o := newDialOptions(opts)

	t, err := parseAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var m Map
	switch t.scheme {
	case schemeHTTP, schemeHTTPS:
		m = newHTTPRemote(t.baseURL(), o)
	case schemeGRPC:
		m, err = newGRPCRemote(t.hosts[0], o)
	case schemeEtcd:
		m, err = newEtcdRemote(t.hosts, t.prefix(defaultEtcdPrefix), o)
	case schemeZK:
		m, err = dialZK(dialCtx, t.hosts, t.prefix(defaultZKRoot), o)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}

	if _, err := m.Len(dialCtx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}

	o.logger.Debug("logmap connected", "addr", addr, "transport", t.scheme)
	return m, nil
}
