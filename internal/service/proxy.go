package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guttosm/sunday-edge/internal/datasource"
)

var (
	// ErrInvalidTarget is returned for a missing or non-http(s) proxy url.
	ErrInvalidTarget = errors.New("invalid proxy target url")
	// ErrHostNotAllowed is returned for hosts outside the allow-list.
	ErrHostNotAllowed = errors.New("proxy target host is not allowed")
	// ErrResponseTooLarge is returned when an upstream body exceeds the size limit.
	ErrResponseTooLarge = errors.New("proxy upstream response too large")
)

const (
	// DefaultProxyTTL is how long a proxied body is served from cache.
	DefaultProxyTTL     = 30 * time.Second
	defaultProxyTimeout = 10 * time.Second
	proxyUserAgent      = "sunday-edge/1.0"
)

// DefaultMaxProxyBodyBytes bounds a proxied body.
const DefaultMaxProxyBodyBytes = 8 << 20

// DefaultProxyHosts are the third-party APIs the dashboard reads through the proxy.
var DefaultProxyHosts = []string{
	"api.the-odds-api.com",
	"site.api.espn.com",
	"v1.american-football.api-sports.io",
}

// ProxyResponse is a cached upstream body.
type ProxyResponse struct {
	ContentType string
	Body        []byte
}

// ProxyService fetches allow-listed third-party URLs through the cache.
type ProxyService interface {
	Fetch(ctx context.Context, target string, refresh bool) (*ProxyResponse, Outcome, error)
}

// ProxyConfig configures the proxy service.
type ProxyConfig struct {
	AllowedHosts []string
	// Headers are added to requests whose host matches the map key.
	Headers map[string]http.Header
	// Query parameters are added the same way, after the cache key is built.
	Query   map[string]url.Values
	TTL     time.Duration
	Timeout time.Duration
	// MaxBodyBytes rejects larger upstream bodies instead of caching them cut short.
	MaxBodyBytes int64
}

// ProxyServiceImpl implements ProxyService.
type ProxyServiceImpl struct {
	http    *http.Client
	fetcher *Fetcher
	cfg     ProxyConfig
}

// NewProxyService creates a new proxy service.
func NewProxyService(fetcher *Fetcher, cfg ProxyConfig) ProxyService {
	if len(cfg.AllowedHosts) == 0 {
		cfg.AllowedHosts = DefaultProxyHosts
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultProxyTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProxyTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxProxyBodyBytes
	}
	return &ProxyServiceImpl{
		http:    &http.Client{Timeout: cfg.Timeout},
		fetcher: fetcher,
		cfg:     cfg,
	}
}

func (s *ProxyServiceImpl) Fetch(ctx context.Context, target string, refresh bool) (*ProxyResponse, Outcome, error) {
	u, err := s.validate(target)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	normalized := u.String()
	return Call(ctx, s.fetcher, "proxy:"+normalized, func(ctx context.Context) (*ProxyResponse, error) {
		return s.do(ctx, u)
	}, CallOptions{
		Resource:     "proxy",
		TTL:          s.cfg.TTL,
		Tags:         []string{"proxy", "host:" + u.Hostname()},
		ForceRefresh: refresh,
	})
}

func (s *ProxyServiceImpl) validate(target string) (*url.URL, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrInvalidTarget
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, ErrInvalidTarget
	}
	if !s.allowed(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	u.Fragment = ""
	return u, nil
}

// allowed matches host exactly or as a subdomain of an allow-listed host.
func (s *ProxyServiceImpl) allowed(host string) bool {
	host = strings.ToLower(host)
	for _, h := range s.cfg.AllowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (s *ProxyServiceImpl) do(ctx context.Context, u *url.URL) (*ProxyResponse, error) {
	host := strings.ToLower(u.Hostname())
	target := *u
	if extra := matchHost(s.cfg.Query, host); len(extra) > 0 {
		q := target.Query()
		for _, params := range extra {
			for k, vs := range params {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
		}
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", proxyUserAgent)
	for _, headers := range matchHost(s.cfg.Headers, host) {
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("proxy %s: read body: %w", host, err)
	}
	if int64(len(body)) > s.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: %s sent more than %d bytes", ErrResponseTooLarge, host, s.cfg.MaxBodyBytes)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &datasource.UpstreamError{Resource: "proxy", StatusCode: resp.StatusCode, Message: resp.Status}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	return &ProxyResponse{ContentType: contentType, Body: body}, nil
}

// matchHost returns the values whose key is host or a parent domain of host.
func matchHost[V any](m map[string]V, host string) []V {
	var out []V
	for h, v := range m {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			out = append(out, v)
		}
	}
	return out
}
