package probe

import (
	"testing"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"

	"github.com/portwatch/portwatch/internal/model"
)

func TestProtocolOf(t *testing.T) {
	tcp := gopsnet.ConnectionStat{Type: 1}
	udp := gopsnet.ConnectionStat{Type: 2}

	assert.Equal(t, model.TCP, protocolOf(tcp))
	assert.Equal(t, model.UDP, protocolOf(udp))
}

func TestSocketStateOf(t *testing.T) {
	cases := []struct {
		name string
		conn gopsnet.ConnectionStat
		want model.SocketState
	}{
		{"listen", gopsnet.ConnectionStat{Status: "LISTEN"}, model.StateListen},
		{"established", gopsnet.ConnectionStat{Status: "ESTABLISHED"}, model.StateEstablished},
		{"time wait", gopsnet.ConnectionStat{Status: "TIME_WAIT"}, model.StateTimeWait},
		{"close wait", gopsnet.ConnectionStat{Status: "CLOSE_WAIT"}, model.StateCloseWait},
		{"unknown", gopsnet.ConnectionStat{Status: "SOMETHING_ELSE"}, model.StateOther},
		{"empty udp treated as listening", gopsnet.ConnectionStat{Status: "", Type: 2}, model.StateListen},
		{"empty tcp is other", gopsnet.ConnectionStat{Status: "", Type: 1}, model.StateOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, socketStateOf(tc.conn))
		})
	}
}

func TestBindingFromConnection(t *testing.T) {
	conn := gopsnet.ConnectionStat{
		Type:  1,
		Laddr: gopsnet.Addr{IP: "0.0.0.0", Port: 8080},
		Raddr: gopsnet.Addr{IP: "10.0.0.5", Port: 54321},
		Status: "LISTEN",
		Pid:   100,
	}
	names := map[int32]string{100: "nginx"}

	b := bindingFromConnection(conn, names)

	assert.Equal(t, 8080, b.Port)
	assert.Equal(t, model.TCP, b.Protocol)
	assert.Equal(t, model.StateListen, b.State)
	assert.Equal(t, 100, b.PID)
	assert.Equal(t, "nginx", b.ProcessName)
	assert.Equal(t, "0.0.0.0", b.LocalAddress)
	assert.Equal(t, "10.0.0.5", b.RemoteAddress)
	assert.Equal(t, 54321, b.RemotePort)
}

func TestBindingFromConnection_NoPID_NoNameLookup(t *testing.T) {
	conn := gopsnet.ConnectionStat{Laddr: gopsnet.Addr{IP: "127.0.0.1", Port: 22}}

	b := bindingFromConnection(conn, map[int32]string{100: "nginx"})

	assert.Equal(t, 0, b.PID)
	assert.Empty(t, b.ProcessName)
}

func TestCPUCountOrDefault_NeverZero(t *testing.T) {
	assert.GreaterOrEqual(t, cpuCountOrDefault(), 1)
}

func TestConnKind(t *testing.T) {
	assert.Equal(t, "inet", connKind(true, true))
	assert.Equal(t, "tcp", connKind(true, false))
	assert.Equal(t, "udp", connKind(false, true))
	assert.Equal(t, "inet", connKind(false, false))
}
