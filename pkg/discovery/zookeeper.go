// Package discovery registers logmapd nodes in ZooKeeper and resolves them
// for clients.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	sessionTimeout = 5 * time.Second
	nodesDir       = "/nodes"
)

var ErrNoNodes = errors.New("discovery: no live nodes")

type ZKMembership struct {
	conn     *zk.Conn
	rootPath string
	logger   *slog.Logger
}

// servers: ["zk1:2181", "zk2:2181"]
func NewZKMembership(servers []string, rootPath string, logger *slog.Logger) (*ZKMembership, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{logger}))
	if err != nil {
		return nil, fmt.Errorf("zk connect: %w", err)
	}
	return &ZKMembership{
		conn:     conn,
		rootPath: strings.TrimRight(rootPath, "/"),
		logger:   logger,
	}, nil
}

func (m *ZKMembership) Close() error {
	m.conn.Close()
	return nil
}

func (m *ZKMembership) nodesPath() string {
	return m.rootPath + nodesDir
}

func (m *ZKMembership) ensurePath(path string) error {
	parts := strings.Split(path, "/")
	cur := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = cur + "/" + p
		exists, _, err := m.conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			_, err = m.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
			if err != nil && !errors.Is(err, zk.ErrNodeExists) {
				return err
			}
		}
	}
	return nil
}

// RegisterSelf creates an ephemeral node named name whose data is the
// node's HTTP URL.
func (m *ZKMembership) RegisterSelf(ctx context.Context, name, url string) error {
	if err := m.waitConnected(ctx); err != nil {
		return err
	}

	if err := m.ensurePath(m.nodesPath()); err != nil {
		return fmt.Errorf("ensure nodes path: %w", err)
	}

	nodePath := m.nodesPath() + "/" + name
	_, err := m.conn.Create(nodePath, []byte(url), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("create ephemeral node: %w", err)
	}

	m.logger.Info("zk: registered node", "path", nodePath, "url", url)
	return nil
}

// Nodes returns the URLs of all live nodes ordered by node name.
func (m *ZKMembership) Nodes(ctx context.Context) ([]string, error) {
	if err := m.waitConnected(ctx); err != nil {
		return nil, err
	}

	children, _, err := m.conn.Children(m.nodesPath())
	if err != nil {
		return nil, fmt.Errorf("zk children: %w", err)
	}
	sort.Strings(children)

	urls := make([]string, 0, len(children))
	for _, child := range children {
		data, _, err := m.conn.Get(m.nodesPath() + "/" + child)
		if errors.Is(err, zk.ErrNoNode) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("zk get %s: %w", child, err)
		}
		urls = append(urls, nodeURL(child, data))
	}
	return urls, nil
}

// Resolve returns the URL of the first live node.
func (m *ZKMembership) Resolve(ctx context.Context) (string, error) {
	urls, err := m.Nodes(ctx)
	if err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", fmt.Errorf("%w under %s", ErrNoNodes, m.nodesPath())
	}
	return urls[0], nil
}

// Watch calls fn with the live node URLs now and after every membership
// change until ctx is done.
func (m *ZKMembership) Watch(ctx context.Context, fn func(urls []string)) {
	go func() {
		for {
			_, _, ch, err := m.conn.ChildrenW(m.nodesPath())
			if err != nil {
				m.logger.Warn("zk: ChildrenW error", "error", err)
				select {
				case <-time.After(2 * time.Second):
					continue
				case <-ctx.Done():
					return
				}
			}

			urls, err := m.Nodes(ctx)
			if err != nil {
				m.logger.Warn("zk: read nodes", "error", err)
			} else {
				fn(urls)
			}

			select {
			case ev := <-ch:
				m.logger.Debug("zk: event", "type", ev.Type, "path", ev.Path)
			case <-ctx.Done():
				m.logger.Debug("zk: watch stopped")
				return
			}
		}
	}()
}

func (m *ZKMembership) waitConnected(ctx context.Context) error {
	for {
		st := m.conn.State()
		if st == zk.StateConnected || st == zk.StateHasSession {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("zk: not connected, state=%v: %w", st, ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func nodeURL(name string, data []byte) string {
	if len(data) > 0 {
		return string(data)
	}
	return "http://" + name
}

type zkLogger struct {
	l *slog.Logger
}

func (z zkLogger) Printf(format string, args ...interface{}) {
	z.l.Debug(fmt.Sprintf(format, args...), "component", "zk")
}
