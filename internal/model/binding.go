// Package model holds the immutable value types passed between every
// component of the engine: port bindings, process samples, their enriched
// and classified forms, health-check results, and alert types. Nothing in
// this package performs I/O; it is pure data plus the small derived
// predicates each type owns.
package model

import "strconv"

// Protocol is the transport protocol of a port binding.
type Protocol string

const (
	TCP Protocol = "TCP"
	UDP Protocol = "UDP"
)

// SocketState is the OS socket state of a binding.
type SocketState string

const (
	StateListen     SocketState = "LISTEN"
	StateEstablished SocketState = "ESTABLISHED"
	StateTimeWait   SocketState = "TIME_WAIT"
	StateCloseWait  SocketState = "CLOSE_WAIT"
	StateOther      SocketState = "OTHER"
)

// PortBinding is one row of the OS's socket table: a (port, protocol,
// address, pid) tuple, plus whatever process identity the OS attached to
// it. It is an immutable value — nothing in this module mutates a
// PortBinding after construction.
type PortBinding struct {
	Port          int         `json:"port"`
	Protocol      Protocol    `json:"protocol"`
	State         SocketState `json:"state"`
	PID           int         `json:"pid"` // 0 = unknown
	ProcessName   string      `json:"processName"`
	CommandLine   string      `json:"commandLine"`
	User          string      `json:"user"`
	LocalAddress  string      `json:"localAddress"`
	RemoteAddress string      `json:"remoteAddress"`
	RemotePort    int         `json:"remotePort"`
}

var wildcardAddresses = map[string]struct{}{
	"0.0.0.0": {},
	"::":      {},
	"*":       {},
}

var loopbackAddresses = map[string]struct{}{
	"127.0.0.1": {},
	"::1":       {},
	"localhost": {},
}

// IsExposed reports whether the binding is bound to a wildcard address and
// therefore reachable from any network interface.
func (b PortBinding) IsExposed() bool {
	_, ok := wildcardAddresses[b.LocalAddress]
	return ok
}

// IsLocalOnly reports whether the binding is bound to a loopback address.
func (b PortBinding) IsLocalOnly() bool {
	_, ok := loopbackAddresses[b.LocalAddress]
	return ok
}

// Key returns the (pid, port, protocol) tuple enumerations deduplicate on.
func (b PortBinding) Key() [3]string {
	return [3]string{strconv.Itoa(b.PID), strconv.Itoa(b.Port), string(b.Protocol)}
}
