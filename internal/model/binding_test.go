package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortBinding_IsExposed(t *testing.T) {
	cases := []struct {
		name string
		addr string
		want bool
	}{
		{"wildcard v4", "0.0.0.0", true},
		{"wildcard v6", "::", true},
		{"wildcard shorthand", "*", true},
		{"loopback v4", "127.0.0.1", false},
		{"loopback v6", "::1", false},
		{"specific address", "10.0.0.5", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := PortBinding{LocalAddress: tc.addr}
			assert.Equal(t, tc.want, b.IsExposed())
		})
	}
}

func TestPortBinding_IsLocalOnly(t *testing.T) {
	cases := []struct {
		name string
		addr string
		want bool
	}{
		{"loopback v4", "127.0.0.1", true},
		{"loopback v6", "::1", true},
		{"localhost literal", "localhost", true},
		{"wildcard", "0.0.0.0", false},
		{"specific address", "192.168.1.1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := PortBinding{LocalAddress: tc.addr}
			assert.Equal(t, tc.want, b.IsLocalOnly())
		})
	}
}

func TestPortBinding_Key(t *testing.T) {
	a := PortBinding{PID: 100, Port: 8080, Protocol: TCP}
	b := PortBinding{PID: 100, Port: 8080, Protocol: TCP}
	c := PortBinding{PID: 100, Port: 8080, Protocol: UDP}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
