package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/forPelevin/notereel/internal/history"
	"github.com/forPelevin/notereel/internal/logging"
	"github.com/forPelevin/notereel/internal/progress"
)

const (
	eventFinished = "run:finished"
	writeTimeout  = 10 * time.Second
)

type wsMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func eventName(e progress.Event) string {
	return "run:" + string(e.Kind)
}

// streamEvents pushes a run's stage and progress events to a websocket
// client. Finished runs get their history entry as a single run:finished
// message.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hub, active := s.hub(id)

	var finished *history.Entry
	if !active {
		entry, err := s.lookup(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "run not found")
			return
		}
		finished = &entry
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.origins,
	})
	if err != nil {
		s.logger.Warn("websocket accept", logging.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream ended")

	// The client never sends anything; CloseRead cancels ctx when it leaves.
	ctx := conn.CloseRead(r.Context())

	if finished != nil {
		if err := send(ctx, conn, wsMessage{Event: eventFinished, Data: finished}); err == nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}
		return
	}

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	s.logger.Debug("websocket client connected", slog.String("run_id", id))

	for {
		select {
		case e, ok := <-events:
			if !ok {
				if entry, err := s.lookup(ctx, id); err == nil {
					_ = send(ctx, conn, wsMessage{Event: eventFinished, Data: entry})
				}
				conn.Close(websocket.StatusNormalClosure, "run finished")
				return
			}
			if err := send(ctx, conn, wsMessage{Event: eventName(e), Data: e}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) lookup(ctx context.Context, id string) (history.Entry, error) {
	if s.store == nil {
		return history.Entry{}, errors.New("no history store")
	}
	return s.store.Get(ctx, id)
}

func send(ctx context.Context, conn *websocket.Conn, msg wsMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
