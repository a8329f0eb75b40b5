package ordersync

import "github.com/five82/ordersync/internal/storefront"

// Renderer receives everything a session wants shown to the user. It is the
// stand-in for the order page's DOM: elements tagged with an order id get
// their status, timestamp and consistency refreshed on every applied poll.
// Implementations must be safe for concurrent use across sessions.
type Renderer interface {
	// Render refreshes every view element tagged for snap.OrderID.
	Render(snap storefront.StatusSnapshot)
	// ShowInconsistencyWarning raises a dismissible warning offering an
	// immediate resync.
	ShowInconsistencyWarning(snap storefront.StatusSnapshot)
	// ShowConflictNotice raises a transient notice after the server
	// overrode the client's status.
	ShowConflictNotice(res Resolution)
	// PollFailed records a failed poll; the previous view stays in place.
	PollFailed(orderID string, err error)
}

// NopRenderer discards everything.
type NopRenderer struct{}

func (NopRenderer) Render(storefront.StatusSnapshot)                   {}
func (NopRenderer) ShowInconsistencyWarning(storefront.StatusSnapshot) {}
func (NopRenderer) ShowConflictNotice(Resolution)                      {}
func (NopRenderer) PollFailed(string, error)                           {}
