package frontend

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	pingInterval = 15 * time.Second
	writeTimeout = 5 * time.Second
)

// eventsHandler streams a snapshot of the session on connect and after every
// change until the client goes away.
func (service *FrontendService) eventsHandler(ctx echo.Context) error {
	conn, err := websocket.Accept(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		slog.Warn("eventsHandler: websocket upgrade failed", "error", err)
		return nil
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	// the client never sends data; CloseRead cancels once it disconnects
	streamCtx := conn.CloseRead(ctx.Request().Context())

	changes, unsubscribe := service.coreService.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	if err := service.writeSnapshot(streamCtx, conn); err != nil {
		return nil
	}
	for {
		select {
		case <-streamCtx.Done():
			return nil
		case <-changes:
			if err := service.writeSnapshot(streamCtx, conn); err != nil {
				return nil
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(streamCtx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				slog.Debug("eventsHandler: client ping failed", "error", err)
				return nil
			}
		}
	}
}

func (service *FrontendService) writeSnapshot(ctx context.Context, conn *websocket.Conn) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, service.coreService.Snapshot()); err != nil {
		slog.Debug("eventsHandler: failed to write snapshot", "error", err)
		return err
	}
	return nil
}
