package logmap

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		addr    string
		scheme  string
		hosts   []string
		path    string
		baseURL string
	}{
		{addr: "localhost:8080", scheme: "http", hosts: []string{"localhost:8080"}, baseURL: "http://localhost:8080"},
		{addr: "http://127.0.0.1:9000/", scheme: "http", hosts: []string{"127.0.0.1:9000"}, baseURL: "http://127.0.0.1:9000"},
		{addr: "HTTPS://map.example/base", scheme: "https", hosts: []string{"map.example"}, path: "base", baseURL: "https://map.example/base"},
		{addr: "grpc://10.0.0.5:9090", scheme: "grpc", hosts: []string{"10.0.0.5:9090"}},
		{addr: "etcd://e1:2379,e2:2379/wal/a", scheme: "etcd", hosts: []string{"e1:2379", "e2:2379"}, path: "wal/a"},
		{addr: "zk://z1:2181", scheme: "zk", hosts: []string{"z1:2181"}},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got, err := parseAddr(tt.addr)
			if err != nil {
				t.Fatalf("parseAddr failed: %v", err)
			}
			if got.scheme != tt.scheme || got.path != tt.path {
				t.Fatalf("got scheme=%q path=%q", got.scheme, got.path)
			}
			if len(got.hosts) != len(tt.hosts) {
				t.Fatalf("got hosts %v, want %v", got.hosts, tt.hosts)
			}
			for i := range tt.hosts {
				if got.hosts[i] != tt.hosts[i] {
					t.Fatalf("got hosts %v, want %v", got.hosts, tt.hosts)
				}
			}
			if tt.baseURL != "" && got.baseURL() != tt.baseURL {
				t.Fatalf("got base URL %q, want %q", got.baseURL(), tt.baseURL)
			}
		})
	}
}

func TestParseAddrPrefix(t *testing.T) {
	got, _ := parseAddr("etcd://e1:2379")
	if p := got.prefix(defaultEtcdPrefix); p != "/logwal" {
		t.Fatalf("Expected default prefix, got %q", p)
	}
	got, _ = parseAddr("zk://z1:2181/services/wal")
	if p := got.prefix(defaultZKRoot); p != "/services/wal" {
		t.Fatalf("Expected /services/wal, got %q", p)
	}
}

func TestParseAddrInvalid(t *testing.T) {
	for _, addr := range []string{
		"",
		"   ",
		"ftp://host:21",
		"grpc://",
		"grpc://a:1,b:2",
		"grpc://noport",
		"etcd://e1",
		"http://a:1,b:2",
	} {
		t.Run(addr, func(t *testing.T) {
			if _, err := parseAddr(addr); !errors.Is(err, ErrBadAddress) {
				t.Fatalf("Expected ErrBadAddress, got %v", err)
			}
		})
	}
}

func TestDialFailures(t *testing.T) {
	ctx := context.Background()

	if _, err := Dial(ctx, "ftp://host:21"); !errors.Is(err, ErrConnect) || !errors.Is(err, ErrBadAddress) {
		t.Fatalf("Expected ErrConnect wrapping ErrBadAddress, got %v", err)
	}

	// Nothing listens on port 1.
	_, err := Dial(ctx, "http://127.0.0.1:1", WithTimeout(time.Second))
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("Expected ErrConnect, got %v", err)
	}
}
