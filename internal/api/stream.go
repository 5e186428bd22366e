package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/solmint/claimengine/internal/registry"
)

// streamServer holds the websocket upgrader shared by every stream
// connection, per SPEC_FULL.md §6's additive streaming endpoint (the
// teacher's dcrlnd equivalent is its SubscribeInvoices-style
// server-streaming RPC; this repo has no gRPC stack, so gorilla/websocket
// stands in for that one-way push).
type streamServer struct {
	upgrader websocket.Upgrader
}

func newStreamServer() streamServer {
	return streamServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// handleStream serves `GET claims/{token}/stream?transactionKey={k}`. It
// refuses a key the PendingClaimRegistry never issued or has already
// resolved, then relays every submitter.Update tick engine.Confirm
// publishes on s.hub until the terminal one arrives, the client
// disconnects, or the request context is canceled.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	_ = token // present for route symmetry with GET claims/{token}; the key alone identifies the subscription

	transactionKey := r.URL.Query().Get("transactionKey")
	if transactionKey == "" {
		http.Error(w, "transactionKey query parameter is required", http.StatusBadRequest)
		return
	}
	if !s.engine.HasPendingClaim(registry.TransactionKey(transactionKey)) {
		http.Error(w, "unknown or already-resolved transaction key", http.StatusNotFound)
		return
	}

	conn, err := s.stream.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := s.hub.Subscribe(transactionKey)
	defer s.hub.Unsubscribe(transactionKey, ch)

	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(u); err != nil {
				return
			}
			if u.Done {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
