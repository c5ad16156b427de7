// Package proxysocks routes miner connections directly or through a SOCKS5 proxy such as Tor
package proxysocks

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// Tor daemon defaults
const (
	TorHost = "127.0.0.1"
	TorPort = 9050
)

// Config holds SOCKS proxy configuration
type Config struct {
	Enabled  bool   `json:"enabled"`
	Type     string `json:"type"` // must be "socks5"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"` // optional authentication
	Password string `json:"password"` // optional authentication
}

// ApplyTorDefaults fills an enabled proxy with the local Tor endpoint
func (c *Config) ApplyTorDefaults() {
	if !c.Enabled {
		return
	}
	if c.Type == "" {
		c.Type = "socks5"
	}
	if c.Host == "" {
		c.Host = TorHost
	}
	if c.Port == 0 {
		c.Port = TorPort
	}
}

// ProxyDialer wraps SOCKS proxy functionality
type ProxyDialer struct {
	config *Config
	dialer proxy.Dialer
}

// NewProxyDialer creates a new SOCKS proxy dialer
func NewProxyDialer(config *Config) (*ProxyDialer, error) {
	if !config.Enabled {
		return &ProxyDialer{
			config: config,
			dialer: &net.Dialer{
				Timeout: 10 * time.Second,
			},
		}, nil
	}

	if config.Type != "socks5" {
		return nil, fmt.Errorf("unsupported proxy type: %s (must be 'socks5')", config.Type)
	}

	if config.Host == "" || config.Port == 0 {
		return nil, fmt.Errorf("proxy host and port are required when proxy is enabled")
	}

	authURL := &url.URL{
		Scheme: "socks5",
		Host:   net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
	}
	if config.Username != "" {
		authURL.User = url.UserPassword(config.Username, config.Password)
	}

	dialer, err := proxy.FromURL(authURL, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS proxy dialer: %w", err)
	}

	return &ProxyDialer{
		config: config,
		dialer: dialer,
	}, nil
}

// Dial creates a network connection using the configured proxy or direct connection
func (p *ProxyDialer) Dial(network, address string) (net.Conn, error) {
	return p.dialer.Dial(network, address)
}

// DialContext creates a network connection with context using the configured proxy
func (p *ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if dialerCtx, ok := p.dialer.(proxy.ContextDialer); ok {
		return dialerCtx.DialContext(ctx, network, address)
	}

	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := p.dialer.Dial(network, address)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		return r.conn, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// DialTimeout dials a TCP address, giving up after timeout
func (p *ProxyDialer) DialTimeout(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		return p.DialContext(ctx, "tcp", address)
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.DialContext(dctx, "tcp", address)
}

// IsEnabled returns true if SOCKS proxy is configured and enabled
func (p *ProxyDialer) IsEnabled() bool {
	return p.config.Enabled
}

// GetAddress returns the proxy address
func (p *ProxyDialer) GetAddress() string {
	if !p.config.Enabled {
		return ""
	}
	return net.JoinHostPort(p.config.Host, fmt.Sprint(p.config.Port))
}
