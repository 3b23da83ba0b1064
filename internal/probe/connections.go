package probe

import (
	"runtime"
	"strings"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/portwatch/portwatch/internal/model"
	"github.com/portwatch/portwatch/pkg/types"
)

func connKind(tcp, udp bool) string {
	switch {
	case tcp && udp:
		return "inet"
	case tcp:
		return "tcp"
	case udp:
		return "udp"
	default:
		return "inet"
	}
}

// gopsutil's net.ConnectionStat carries both the numeric socket type and
// the Family; translate those into our Protocol enum.
func protocolOf(c gopsnet.ConnectionStat) model.Protocol {
	const sockDgram = 2 // syscall.SOCK_DGRAM, avoided as an import to stay portable
	if c.Type == sockDgram {
		return model.UDP
	}
	return model.TCP
}

func socketStateOf(c gopsnet.ConnectionStat) model.SocketState {
	switch strings.ToUpper(c.Status) {
	case "LISTEN":
		return model.StateListen
	case "ESTABLISHED":
		return model.StateEstablished
	case "TIME_WAIT":
		return model.StateTimeWait
	case "CLOSE_WAIT":
		return model.StateCloseWait
	case "":
		// UDP sockets report no Status in gopsutil; treat a bound,
		// connectionless socket as listening for our purposes.
		if c.Type == 2 {
			return model.StateListen
		}
		return model.StateOther
	default:
		return model.StateOther
	}
}

func bindingFromConnection(c gopsnet.ConnectionStat, names map[int32]string) model.PortBinding {
	b := model.PortBinding{
		Port:          int(c.Laddr.Port),
		Protocol:      protocolOf(c),
		State:         socketStateOf(c),
		PID:           int(c.Pid),
		LocalAddress:  c.Laddr.IP,
		RemoteAddress: c.Raddr.IP,
		RemotePort:    int(c.Raddr.Port),
	}
	if b.PID > 0 {
		b.ProcessName = names[c.Pid]
	}
	return b
}

// snapshotProcessNames is a cheap bulk pid->name map used to attach a
// process name to each connection without a per-connection process spawn.
func snapshotProcessNames() map[int32]string {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}
	out := make(map[int32]string, len(procs))
	for _, p := range procs {
		if name, err := p.Name(); err == nil {
			out[p.Pid] = name
		}
	}
	return out
}

func cpuCountOrDefault() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

func bytesOf(v uint64) types.Bytes {
	return types.Bytes(v)
}
