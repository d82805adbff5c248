package network

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// ProxyProvider provides proxy configuration.
type ProxyProvider interface {
	GetProxyURL(ctx context.Context) string
}

// IPStackProvider reports the preferred IP stack: "default", "ipv4" or "ipv6".
type IPStackProvider interface {
	GetIPStack(ctx context.Context) string
}

// StaticProvider serves fixed proxy and IP stack values, usually from config.
type StaticProvider struct {
	ProxyURL string
	IPStack  string
}

func (p StaticProvider) GetProxyURL(context.Context) string { return p.ProxyURL }

func (p StaticProvider) GetIPStack(context.Context) string {
	if p.IPStack == "" {
		return "default"
	}
	return p.IPStack
}

type noopProvider struct{}

func (p *noopProvider) GetProxyURL(context.Context) string { return "" }
func (p *noopProvider) GetIPStack(context.Context) string  { return "default" }

// ClientFactory creates outbound HTTP clients (IP lookup, webhook, mail provider)
// that honour the configured proxy and IP stack.
type ClientFactory struct {
	proxyProvider   ProxyProvider
	ipStackProvider IPStackProvider
	testHTTPClient  *http.Client // For testing only
}

// NewClientFactory creates a new client factory. Nil providers fall back to
// direct connections on the default stack.
func NewClientFactory(proxyProvider ProxyProvider, ipStackProvider IPStackProvider) *ClientFactory {
	if proxyProvider == nil {
		proxyProvider = &noopProvider{}
	}
	if ipStackProvider == nil {
		ipStackProvider = &noopProvider{}
	}
	return &ClientFactory{proxyProvider: proxyProvider, ipStackProvider: ipStackProvider}
}

// NewClientFactoryForTest creates a client factory that always returns the given client.
func NewClientFactoryForTest(client *http.Client) *ClientFactory {
	return &ClientFactory{
		proxyProvider:   &noopProvider{},
		ipStackProvider: &noopProvider{},
		testHTTPClient:  client,
	}
}

// NewHTTPClient creates an http.Client with proxy and IP stack configuration.
func (f *ClientFactory) NewHTTPClient(ctx context.Context, timeout time.Duration) *http.Client {
	if f.testHTTPClient != nil {
		return f.testHTTPClient
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: f.NewHTTPTransport(ctx),
	}
}

// NewHTTPTransport creates an http.Transport with proxy configuration.
// HTTP(S) proxies are set on Transport.Proxy; SOCKS5 proxies replace the dialer.
func (f *ClientFactory) NewHTTPTransport(ctx context.Context) *http.Transport {
	ipStack := f.ipStackProvider.GetIPStack(ctx)
	transport := &http.Transport{
		DialContext:         f.makeDialFunc(ipStack),
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
	}

	proxyURL := f.proxyProvider.GetProxyURL(ctx)
	if proxyURL == "" {
		return transport
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return transport
	}

	switch parsed.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(parsed, &ipStackDialer{ipStack: ipStack})
		if err != nil {
			return transport
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		}
	}
	return transport
}

// GetProxyURL returns the current proxy URL.
func (f *ClientFactory) GetProxyURL(ctx context.Context) string {
	return f.proxyProvider.GetProxyURL(ctx)
}

func (f *ClientFactory) makeDialFunc(ipStack string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialWithIPStack(ctx, network, addr, ipStack)
	}
}

// ExtractHost returns the host[:port] of rawURL, or "" when it cannot be parsed.
func ExtractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func dialWithIPStack(ctx context.Context, network, addr, ipStack string) (net.Conn, error) {
	switch ipStack {
	case "ipv4":
		return dialWithPreference(ctx, addr, "tcp4", "tcp6")
	case "ipv6":
		return dialWithPreference(ctx, addr, "tcp6", "tcp4")
	default:
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}
}

func dialWithPreference(ctx context.Context, addr, primary, fallback string) (net.Conn, error) {
	d := net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, primary, addr)
	if err == nil {
		return conn, nil
	}
	conn, fallbackErr := d.DialContext(ctx, fallback, addr)
	if fallbackErr == nil {
		return conn, nil
	}
	return nil, errors.Join(err, fallbackErr)
}

// ipStackDialer adapts dialWithIPStack to proxy.Dialer.
type ipStackDialer struct {
	ipStack string
}

func (d *ipStackDialer) Dial(network, addr string) (net.Conn, error) {
	return dialWithIPStack(context.Background(), network, addr, d.ipStack)
}

func (d *ipStackDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return dialWithIPStack(ctx, network, addr, d.ipStack)
}
