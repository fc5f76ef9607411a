// Package transport builds per-wallet network connections routed through
// a selected proxy.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vietddude/cycler/internal/core/domain"
)

// Conn is the connection handle operations run against. Built fresh per
// wallet per cycle and closed when the wallet's plan finishes.
type Conn struct {
	Proxy domain.Proxy
	HTTP  *http.Client
	// GRPC is set only when the dialer has a gRPC target configured.
	// Callers bring their own generated clients.
	GRPC *grpc.ClientConn
}

// Close releases the connection's resources.
func (c *Conn) Close() error {
	c.HTTP.CloseIdleConnections()
	if c.GRPC != nil {
		return c.GRPC.Close()
	}
	return nil
}

// Dialer constructs Conns. One Dialer serves the whole process.
type Dialer struct {
	timeout    time.Duration
	grpcTarget string
}

// NewDialer creates a Dialer. grpcTarget may be empty when no ledger
// endpoint speaks gRPC.
func NewDialer(grpcTarget string, timeout time.Duration) *Dialer {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Dialer{timeout: timeout, grpcTarget: grpcTarget}
}

// Dial builds a connection through the given proxy. A zero proxy means
// direct connection. Construction failure is an identity-level failure
// for the wallet being processed.
func (d *Dialer) Dial(ctx context.Context, p domain.Proxy) (*Conn, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	var proxyHost string
	if !p.IsZero() {
		u, err := url.Parse(string(p))
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", p, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q: missing scheme or host", p)
		}
		transport.Proxy = http.ProxyURL(u)
		proxyHost = u.Host
	}

	conn := &Conn{
		Proxy: p,
		HTTP: &http.Client{
			Timeout:   d.timeout,
			Transport: transport,
		},
	}

	if d.grpcTarget != "" {
		grpcConn, err := d.dialGRPC(proxyHost)
		if err != nil {
			return nil, fmt.Errorf("failed to build grpc connection: %w", err)
		}
		conn.GRPC = grpcConn
	}

	return conn, nil
}

// dialGRPC builds a lazy gRPC client, tunnelled through the proxy with an
// HTTP CONNECT dialer when one is set.
func (d *Dialer) dialGRPC(proxyHost string) (*grpc.ClientConn, error) {
	target := d.grpcTarget
	var opts []grpc.DialOption

	if strings.HasPrefix(target, "https://") || strings.HasSuffix(target, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	if proxyHost != "" {
		opts = append(opts, grpc.WithContextDialer(connectTunnel(proxyHost)))
	}

	return grpc.NewClient(target, opts...)
}

// connectTunnel returns a dialer that opens a TCP connection to the proxy
// and issues an HTTP CONNECT for the target.
func connectTunnel(proxyHost string) func(ctx context.Context, target string) (net.Conn, error) {
	return func(ctx context.Context, target string) (net.Conn, error) {
		var nd net.Dialer
		conn, err := nd.DialContext(ctx, "tcp", proxyHost)
		if err != nil {
			return nil, fmt.Errorf("dial proxy %s: %w", proxyHost, err)
		}

		req := &http.Request{
			Method: http.MethodConnect,
			URL:    &url.URL{Opaque: target},
			Host:   target,
			Header: make(http.Header),
		}
		if err := req.Write(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("write CONNECT: %w", err)
		}

		resp, err := http.ReadResponse(bufio.NewReader(conn), req)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("read CONNECT response: %w", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			conn.Close()
			return nil, fmt.Errorf("proxy refused CONNECT: %s", resp.Status)
		}
		return conn, nil
	}
}
