package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quantumauth-io/quantum-go-utils/log"

	"github.com/quantumauth-io/quantum-nft-client/internal/nft"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsReadLimit  = 512
)

// newUpgrader accepts requests without an Origin header, from the allowed
// origins, and from the serving host itself.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range normalizeOrigins(allowedOrigins) {
		allowed[o] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			raw := r.Header.Get("Origin")
			if raw == "" {
				return true
			}
			if _, ok := allowed[normalizeOrigin(raw)]; ok {
				return true
			}
			u, err := url.Parse(raw)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// GET /api/nfts/ws pushes every published view as a JSON text message,
// starting with the current one.
func (h *Handler) StreamNFTsWS(upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "remote", c.ClientIP(), "error", err)
			return
		}
		defer func() { _ = conn.Close() }()

		store := h.assets.Views()
		sub := store.Subscribe(streamBufferSize)
		defer sub.Unsubscribe()

		// reader loop: keeps pongs flowing and notices the close
		closed := make(chan struct{})
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()

		if err := writeView(conn, store.Current()); err != nil {
			return
		}
		for {
			select {
			case v := <-sub.Views():
				if err := writeView(conn, v); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-closed:
				return
			case <-sub.Err():
				return
			}
		}
	}
}

func writeView(conn *websocket.Conn, v nft.AssetListView) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
