package discovery

import (
	"net"

	"github.com/golang/glog"
)

// OutgoingIP finds the local address other machines should use to reach
// this host.
func OutgoingIP() string {
	// no packets are sent for a udp dial
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return localIPFallback()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// localIPFallback is used on networks without internet access.
func localIPFallback() string {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	glog.Warning("[net]no suitable local IP found, share links will use loopback")
	return "127.0.0.1"
}
