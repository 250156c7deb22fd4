package server

import "encoding/json"

// RosterEntry is one connection in the roster. Username is null for
// anonymous connections so they are counted, not hidden.
type RosterEntry struct {
	Username *string `json:"username"`
}

// Roster is the presence message pushed to every client.
type Roster struct {
	Online []RosterEntry `json:"online"`
}

func buildRoster(clients []*Client) Roster {
	roster := Roster{Online: make([]RosterEntry, 0, len(clients))}
	for _, client := range clients {
		roster.Online = append(roster.Online, RosterEntry{Username: client.usernamePtr()})
	}
	return roster
}

// Roster returns the current roster in join order.
func (h *Hub) Roster() Roster {
	return buildRoster(h.snapshot())
}

// broadcastPresence sends the roster of the current snapshot to every client
// in that snapshot. Delivery is best effort: clients that cannot take the
// message are evicted and the rest still receive it. When departures are
// announced, an eviction triggers another pass with the shrunken roster,
// until a pass evicts nobody.
func (h *Hub) broadcastPresence() {
	for {
		clients := h.snapshot()

		payload, err := json.Marshal(buildRoster(clients))
		if err != nil {
			h.log.Error("marshal roster", "err", err)
			return
		}

		h.log.Debug("broadcasting roster", "targets", len(clients))

		evicted := h.fanOut(clients, BroadcastMessage{Payload: payload})
		h.metrics.incBroadcast("presence")

		if evicted == 0 || !h.broadcastOnDisconnect {
			return
		}
	}
}
