package state

import (
	"sync"

	"github.com/google/uuid"
)

var (
	siteOnce sync.Once
	siteID   string
)

// SiteID is a random id for this process, used to tell clients apart in logs
// and in the websocket handshake. It never takes part in echo suppression.
func SiteID() string {
	siteOnce.Do(func() {
		siteID = uuid.NewString()
	})
	return siteID
}
