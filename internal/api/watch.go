package api

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"agentflow/pkg/models"
)

const (
	watchWriteWait  = 10 * time.Second
	watchPingPeriod = 30 * time.Second
)

// WatchMessage is one frame of the watch stream.
type WatchMessage struct {
	Type      string            `json:"type"`
	Execution *models.Execution `json:"execution,omitempty"`
}

// WatchExecution upgrades to a websocket and pushes execution snapshots
// until the execution is terminal or the client goes away
// (GET /api/v1/executions/{id}/watch)
func (s *Server) WatchExecution(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	// Subscribe before reading so no update between the read and the
	// subscription is lost.
	updates, cancel := s.Hub.Subscribe(id)
	defer cancel()

	current, err := s.Executions.Get(ctx, id)
	if err != nil {
		return err
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.Logger.WithError(err).Debug("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	// Drain client frames so close and pong control messages are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.Logger.WithError(err).Debug("watch read error for execution %d", id)
				}
				return
			}
		}
	}()

	send := func(msg WatchMessage) error {
		conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
		return conn.WriteJSON(msg)
	}

	if err := send(WatchMessage{Type: "snapshot", Execution: current}); err != nil {
		return nil
	}

	ping := time.NewTicker(watchPingPeriod)
	defer ping.Stop()

	for !current.Status.IsTerminal() {
		select {
		case e, ok := <-updates:
			if !ok {
				return nil
			}
			if e.Version <= current.Version {
				continue
			}
			current = e
			if err := send(WatchMessage{Type: "snapshot", Execution: current}); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "execution "+string(current.Status)),
		time.Now().Add(watchWriteWait))
	return nil
}
