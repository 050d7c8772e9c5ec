package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/mapdump/internal/core/domain"
	"github.com/samirrijal/mapdump/internal/core/replay"
	"github.com/samirrijal/mapdump/internal/pkg/metrics"
)

const (
	replayLoadTimeout = 10 * time.Second
	pingInterval      = 30 * time.Second
)

// replayCommand is sent by the client to drive the replay.
// Action is one of play, pause, seek, faster, slower.
type replayCommand struct {
	Action   string  `json:"action"`
	Progress float64 `json:"progress"`
}

// replayState is pushed to the client on every tick.
type replayState struct {
	Frame   replay.Frame `json:"frame"`
	Playing bool         `json:"playing"`
	Speed   float64      `json:"speed"`
}

// ReplayStreamHandler streams the replay of one route as frames at the
// configured frame rate. The session starts paused at the beginning.
func ReplayStreamHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		routeID := c.Params("id")
		logger := slog.With("route_id", routeID, "remote_addr", c.RemoteAddr().String())

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		ctx, cancel := context.WithTimeout(context.Background(), replayLoadTimeout)
		player, err := deps.Replays.Player(ctx, routeID)
		cancel()
		if err != nil {
			code := "internal_error"
			switch {
			case errors.Is(err, domain.ErrNotFound):
				code = "not_found"
			case errors.Is(err, domain.ErrEmptyTrajectory), errors.Is(err, domain.ErrOutOfRange):
				code = "bad_request"
			default:
				logger.Error("replay load failed", "error", err)
			}
			_ = writeJSON(map[string]string{"error": code, "message": err.Error()})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Info("replay stream opened")

		session := replay.NewSession(player)
		var sessionMu sync.Mutex

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_, msg, err := c.ReadMessage()
				if err != nil {
					return
				}
				var cmd replayCommand
				if err := json.Unmarshal(msg, &cmd); err != nil {
					_ = writeJSON(map[string]string{"error": "invalid JSON"})
					continue
				}
				sessionMu.Lock()
				err = session.Apply(cmd.Action, cmd.Progress)
				sessionMu.Unlock()
				if err != nil {
					_ = writeJSON(map[string]string{"error": err.Error()})
				}
			}
		}()

		frames := time.NewTicker(time.Second / time.Duration(player.FPS()))
		defer frames.Stop()
		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		var lastProgress float64 = -1
		var lastPlaying bool
		for {
			select {
			case <-done:
				logger.Info("replay stream closed")
				return
			case <-ping.C:
				mu.Lock()
				err := c.WriteMessage(websocket.PingMessage, nil)
				mu.Unlock()
				if err != nil {
					return
				}
			case <-frames.C:
				sessionMu.Lock()
				start := time.Now()
				frame, err := session.Tick()
				metrics.ReplayFrameDuration.Observe(time.Since(start).Seconds())
				state := replayState{Frame: frame, Playing: session.Playing(), Speed: session.Speed()}
				sessionMu.Unlock()
				if err != nil {
					logger.Error("replay frame failed", "error", err)
					return
				}
				// Nothing moves while paused; only resend after a seek.
				if !state.Playing && !lastPlaying && frame.Progress == lastProgress {
					continue
				}
				lastProgress, lastPlaying = frame.Progress, state.Playing
				if err := writeJSON(state); err != nil {
					return
				}
			}
		}
	}
}
