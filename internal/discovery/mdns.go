// Package discovery finds board hosts on the local network and builds the
// links used to join them.
package discovery

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/hashicorp/mdns"

	"SharedBoard/internal/state"
)

const serviceType = "_localboard._tcp"

const boardField = "board="

// Advertise announces a host serving board on port. Shut the returned server
// down to stop.
func Advertise(port int, board state.BoardID) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	info := []string{"LocalBoard", boardField + string(board)}
	service, err := mdns.NewMDNSService(host, serviceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	glog.Infof("[mdns]advertising %s on port %d", board, port)
	return server, nil
}

// Browse looks for hosts for timeout and calls found for each one, on a
// separate goroutine.
func Browse(timeout time.Duration, found func(Link)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			if link, ok := entryLink(e); ok {
				glog.V(1).Infof("[mdns]found %s", link)
				found(link)
			}
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("mDNS browse failed: %w", err)
	}
	return nil
}

func entryLink(e *mdns.ServiceEntry) (Link, bool) {
	if e.AddrV4 == nil || e.Port == 0 {
		return Link{}, false
	}
	link := Link{
		Addr:  fmt.Sprintf("%s:%d", e.AddrV4, e.Port),
		Board: state.DefaultBoard,
	}
	for _, field := range e.InfoFields {
		if board, ok := strings.CutPrefix(field, boardField); ok && board != "" {
			link.Board = state.BoardID(board)
		}
	}
	return link, true
}
