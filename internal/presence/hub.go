// Package presence implements the minimal real-time broadcast that
// ActivityFeedService pushes recorded activity into. A websocket
// connection registers for a tenant and receives every activity
// broadcast for that tenant until it disconnects.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Hub fans out broadcasts to every connection registered for a tenant.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
	log   zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns: make(map[string]map[*websocket.Conn]struct{}),
		log:   log.With().Str("component", "presence_hub").Logger(),
	}
}

// Register adds conn to tenantID's broadcast set. The caller owns the
// connection's lifecycle (accept/read loop); Register only tracks it for
// broadcast until ctx is done, at which point it is removed.
func (h *Hub) Register(ctx context.Context, tenantID string, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[tenantID] == nil {
		h.conns[tenantID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[tenantID][conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unregister(tenantID, conn)
	}()
}

func (h *Hub) unregister(tenantID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[tenantID], conn)
	if len(h.conns[tenantID]) == 0 {
		delete(h.conns, tenantID)
	}
}

// Broadcast sends payload to every live connection registered for
// tenantID. A connection that fails to receive the write within
// writeTimeout is dropped; Broadcast never blocks on a slow reader.
func (h *Hub) Broadcast(tenantID string, payload any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[tenantID]))
	for c := range h.conns[tenantID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn := conn
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := wsjson.Write(ctx, conn, payload); err != nil {
				h.log.Debug().Err(err).Msg("dropping presence connection after failed write")
				h.unregister(tenantID, conn)
				conn.Close(websocket.StatusInternalError, "broadcast write failed")
			}
		}()
	}
}

// ConnectionCount returns the number of live connections for tenantID,
// for tests and diagnostics.
func (h *Hub) ConnectionCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[tenantID])
}
