// Package health implements the three synchronous reachability probes:
// TCP, HTTP, and SSL. Every probe has a configurable timeout (default 5s),
// measures wall-clock response time from attempt start to outcome, and
// never returns a Go error for a reachability failure — that outcome is
// always expressed as a HealthCheckResult value.
//
// The transport here is intentionally net/net/http/crypto/tls: no example
// repository in the corpus supplies a general-purpose liveness-probing
// library distinct from what the standard library already provides for
// exactly this (see DESIGN.md).
package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/portwatch/portwatch/internal/model"
)

const DefaultTimeout = 5 * time.Second

// Prober performs TCP/HTTP/SSL reachability probes against a host:port.
type Prober struct {
	timeout time.Duration
	log     zerolog.Logger
	onProbe func(protocol string, d time.Duration)
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout overrides the default 5s probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) { p.timeout = d }
}

// WithLogger attaches a logger; the zero value is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Prober) { p.log = log }
}

// WithObserver registers a callback invoked with each probe's protocol and
// duration, used to feed the module's Prometheus histograms without this
// package importing obs directly.
func WithObserver(fn func(protocol string, d time.Duration)) Option {
	return func(p *Prober) { p.onProbe = fn }
}

// New builds a Prober with a 5s default timeout.
func New(opts ...Option) *Prober {
	p := &Prober{timeout: DefaultTimeout}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Prober) observe(protocol string, start time.Time) {
	if p.onProbe != nil {
		p.onProbe(protocol, time.Since(start))
	}
}

// TCP opens a socket to host:port, records the outcome, and closes it
// immediately.
func (p *Prober) TCP(ctx context.Context, host string, port int) model.HealthCheckResult {
	start := time.Now()
	defer p.observe("tcp", start)

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)

	if err != nil {
		return model.HealthCheckResult{
			Port: port, Protocol: model.ProtoTCP,
			Status: classifyDialErr(err), ResponseTimeMs: ms(elapsed),
			Message: err.Error(),
		}
	}
	_ = conn.Close()

	return model.HealthCheckResult{
		Port: port, Protocol: model.ProtoTCP,
		Status: model.StatusReachable, ResponseTimeMs: ms(elapsed),
		Message: "connection established",
	}
}

// HTTP issues a GET against path with redirects followed. Any HTTP status
// — including 4xx/5xx — counts as REACHABLE: the server responded. Only a
// transport-layer failure produces the TCP-family statuses.
func (p *Prober) HTTP(ctx context.Context, host string, port int, path string, useTLS bool) model.HealthCheckResult {
	start := time.Now()
	defer p.observe("http", start)

	scheme := "http"
	if useTLS {
		scheme = "https"
	}
	if path == "" {
		path = "/"
	}
	url := fmt.Sprintf("%s://%s/%s", scheme, net.JoinHostPort(host, fmt.Sprintf("%d", port)), trimLeadingSlash(path))

	client := &http.Client{
		Timeout: p.timeout,
		Transport: &http.Transport{
			// Liveness, not validation: the probe's purpose is "does
			// something answer here," not certificate trust.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.HealthCheckResult{
			Port: port, Protocol: model.ProtoHTTP,
			Status: model.StatusError, Message: err.Error(),
		}
	}

	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return model.HealthCheckResult{
			Port: port, Protocol: model.ProtoHTTP,
			Status: classifyHTTPErr(err), ResponseTimeMs: ms(elapsed),
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	return model.HealthCheckResult{
		Port: port, Protocol: model.ProtoHTTP,
		Status: model.StatusReachable, ResponseTimeMs: ms(elapsed),
		Message: resp.Status,
		HTTP: &model.HTTPInfo{
			StatusCode:     resp.StatusCode,
			StatusText:     http.StatusText(resp.StatusCode),
			ContentType:    resp.Header.Get("Content-Type"),
			ContentLength:  resp.ContentLength,
			ResponseTimeMs: ms(elapsed),
		},
	}
}

// SSL performs a TLS handshake and captures the peer certificate detail.
func (p *Prober) SSL(ctx context.Context, host string, port int) model.HealthCheckResult {
	start := time.Now()
	defer p.observe("ssl", start)

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	dialer := &net.Dialer{Timeout: p.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{InsecureSkipVerify: true})
	elapsed := time.Since(start)

	if err != nil {
		return model.HealthCheckResult{
			Port: port, Protocol: model.ProtoSSL,
			Status: classifyDialErr(err), ResponseTimeMs: ms(elapsed),
			Message: err.Error(),
		}
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return model.HealthCheckResult{
			Port: port, Protocol: model.ProtoSSL,
			Status: model.StatusReachable, ResponseTimeMs: ms(elapsed),
			Message: "handshake succeeded, no peer certificate presented",
		}
	}

	cert := state.PeerCertificates[0]
	now := time.Now()
	days := int(cert.NotAfter.Sub(now).Hours() / 24)

	info := &model.SSLInfo{
		Issuer:          cert.Issuer.String(),
		Subject:         cert.Subject.String(),
		ValidFrom:       cert.NotBefore,
		ValidTo:         cert.NotAfter,
		Protocol:        tlsVersionName(state.Version),
		CipherSuite:     tls.CipherSuiteName(state.CipherSuite),
		Valid:           now.After(cert.NotBefore) && now.Before(cert.NotAfter),
		DaysUntilExpiry: days,
		ExpiresSoon:     days >= 0 && days <= 30,
	}

	return model.HealthCheckResult{
		Port: port, Protocol: model.ProtoSSL,
		Status: model.StatusReachable, ResponseTimeMs: ms(elapsed),
		Message: "handshake succeeded",
		SSL:     info,
	}
}

// Comprehensive composes TCP → HTTP → SSL (SSL only when useTLS is set),
// short-circuiting on the first unreachable TCP outcome.
func (p *Prober) Comprehensive(ctx context.Context, host string, port int, httpPath string, useTLS bool) []model.HealthCheckResult {
	tcp := p.TCP(ctx, host, port)
	results := []model.HealthCheckResult{tcp}
	if tcp.Status != model.StatusReachable {
		return results
	}
	results = append(results, p.HTTP(ctx, host, port, httpPath, useTLS))
	if useTLS {
		results = append(results, p.SSL(ctx, host, port))
	}
	return results
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000.0 }

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

func classifyDialErr(err error) model.HealthStatus {
	var netErr net.Error
	if ne, ok := err.(net.Error); ok {
		netErr = ne
		if netErr.Timeout() {
			return model.StatusTimeout
		}
	}
	if opErr, ok := err.(*net.OpError); ok {
		if sysErr, ok := opErr.Err.(interface{ Error() string }); ok {
			if isConnRefused(sysErr.Error()) {
				return model.StatusRefused
			}
		}
	}
	return model.StatusUnreachable
}

func classifyHTTPErr(err error) model.HealthStatus {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return model.StatusTimeout
	}
	if isConnRefused(err.Error()) {
		return model.StatusRefused
	}
	return model.StatusUnreachable
}

func isConnRefused(msg string) bool {
	return contains(msg, "connection refused") || contains(msg, "actively refused")
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS1.0"
	case tls.VersionTLS11:
		return "TLS1.1"
	case tls.VersionTLS12:
		return "TLS1.2"
	case tls.VersionTLS13:
		return "TLS1.3"
	default:
		return "unknown"
	}
}
