package server

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const wsWriteTimeout = 10 * time.Second

// handleEventsWS streams trade lifecycle events to a websocket client.
// Each client gets its own buffered subscription; a client that cannot
// keep up loses events rather than stalling publishers.
// GET /api/events/ws
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	sub, cancel := s.deps.Events.Subscribe()
	defer cancel()

	s.log.Debug().Msg("Websocket client subscribed")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt, ok := <-sub:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			writeCancel()
			if err != nil {
				s.log.Debug().Err(err).Msg("Websocket client gone")
				return
			}
		}
	}
}
