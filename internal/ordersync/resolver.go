package ordersync

import "time"

// Action names the side a conflict decision favors.
type Action string

const (
	AcceptServer Action = "accept_server"
	KeepClient   Action = "keep_client"
)

const (
	reasonServerNewer = "Server timestamp is newer"
	reasonClientNewer = "Client timestamp is newer or equal"
)

// Decision is the outcome of comparing a client and a server view of an
// order's status.
type Decision struct {
	Action         Action `json:"action"`
	ResolvedStatus string `json:"resolvedStatus"`
	Reason         string `json:"reason"`
}

// ShouldAcceptServerStatus reports whether the server's view wins. Ties go to
// the client.
func ShouldAcceptServerStatus(clientTimestamp, serverTimestamp time.Time) bool {
	return serverTimestamp.After(clientTimestamp)
}

// ResolutionStrategy applies last-write-wins on timestamps alone. That is
// only sound because the status is a single scalar with nothing to merge.
func ResolutionStrategy(clientStatus, serverStatus string, clientTimestamp, serverTimestamp time.Time) Decision {
	if ShouldAcceptServerStatus(clientTimestamp, serverTimestamp) {
		return Decision{
			Action:         AcceptServer,
			ResolvedStatus: serverStatus,
			Reason:         reasonServerNewer,
		}
	}
	return Decision{
		Action:         KeepClient,
		ResolvedStatus: clientStatus,
		Reason:         reasonClientNewer,
	}
}
