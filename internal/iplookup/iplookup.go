// Package iplookup resolves the public address of the caller through an
// ipify-style endpoint. Lookups are best effort and never fail.
package iplookup

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"collector/pkg/logger"
	"collector/pkg/network"
)

// Unknown is returned whenever the address cannot be determined.
const Unknown = "unknown"

const (
	DefaultURL     = "https://api.ipify.org?format=json"
	DefaultTimeout = 2 * time.Second

	maxBodyBytes = 4 << 10
)

// Resolver returns the caller's public IP, or Unknown.
type Resolver interface {
	Lookup(ctx context.Context) string
}

type Client struct {
	url           string
	timeout       time.Duration
	clientFactory *network.ClientFactory
}

func New(clientFactory *network.ClientFactory, url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if clientFactory == nil {
		clientFactory = network.NewClientFactory(nil, nil)
	}
	return &Client{url: url, timeout: timeout, clientFactory: clientFactory}
}

type ipResponse struct {
	IP string `json:"ip"`
}

func (c *Client) Lookup(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Unknown
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.clientFactory.NewHTTPClient(ctx, c.timeout).Do(req)
	if err != nil {
		logger.Debug("ip lookup failed", "module", "iplookup", "action", "fetch", "resource", "ip", "result", "failed", "error", err)
		return Unknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Debug("ip lookup failed", "module", "iplookup", "action", "fetch", "resource", "ip", "result", "failed", "status_code", resp.StatusCode)
		return Unknown
	}

	var body ipResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return Unknown
	}
	ip := strings.TrimSpace(body.IP)
	if net.ParseIP(ip) == nil {
		return Unknown
	}
	return ip
}

// Static always reports the same address.
type Static string

func (s Static) Lookup(context.Context) string { return string(s) }
