package model

import "time"

// HealthProtocol is the kind of probe that produced a HealthCheckResult.
type HealthProtocol string

const (
	ProtoTCP  HealthProtocol = "TCP"
	ProtoHTTP HealthProtocol = "HTTP"
	ProtoSSL  HealthProtocol = "SSL"
)

// HealthStatus is the outcome of a single probe attempt.
type HealthStatus string

const (
	StatusReachable   HealthStatus = "REACHABLE"
	StatusUnreachable HealthStatus = "UNREACHABLE"
	StatusTimeout     HealthStatus = "TIMEOUT"
	StatusRefused     HealthStatus = "REFUSED"
	StatusError       HealthStatus = "ERROR"
)

// HTTPInfo is the HTTP-specific detail captured by an HTTP probe.
type HTTPInfo struct {
	StatusCode     int     `json:"statusCode"`
	StatusText     string  `json:"statusText"`
	ContentType    string  `json:"contentType"`
	ContentLength  int64   `json:"contentLength"`
	ResponseTimeMs float64 `json:"responseTimeMs"`
}

// SSLInfo is the certificate detail captured by an SSL probe.
type SSLInfo struct {
	Issuer          string    `json:"issuer"`
	Subject         string    `json:"subject"`
	ValidFrom       time.Time `json:"validFrom"`
	ValidTo         time.Time `json:"validTo"`
	Protocol        string    `json:"protocol"`
	CipherSuite     string    `json:"cipherSuite"`
	Valid           bool      `json:"valid"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
	ExpiresSoon     bool      `json:"expiresSoon"`
}

// HealthCheckResult is the outcome of one synchronous reachability probe.
type HealthCheckResult struct {
	Port           int            `json:"port"`
	Protocol       HealthProtocol `json:"protocol"`
	Status         HealthStatus   `json:"status"`
	ResponseTimeMs float64        `json:"responseTimeMs"`
	Message        string         `json:"message"`
	HTTP           *HTTPInfo      `json:"http,omitempty"`
	SSL            *SSLInfo       `json:"ssl,omitempty"`
}
