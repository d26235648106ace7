package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/bus"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

// Feed reads price frames from a websocket endpoint and posts them to the
// router as observations.
type Feed struct {
	logger  *zap.Logger
	router  *bus.Router
	url     string
	symbols []string
	dialer  *websocket.Dialer
}

func NewFeed(logger *zap.Logger, router *bus.Router, url string, symbols []string) *Feed {
	return &Feed{
		logger:  logger,
		router:  router,
		url:     url,
		symbols: append([]string(nil), symbols...),
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Run serves one connection until the peer closes it or ctx is cancelled.
// A normal close and cancellation return nil.
func (f *Feed) Run(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("unable to dial %s: %w", f.url, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	if err := f.subscribe(conn); err != nil {
		return err
	}

	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.logger.Info("feed closed", zap.String("url", f.url))
				return nil
			}
			return fmt.Errorf("unable to read frame: %w", err)
		}
		if kind != websocket.BinaryMessage {
			f.logger.Debug("ignoring non binary frame", zap.Int("type", kind))
			continue
		}

		obs, err := Decode(frame)
		if err != nil {
			f.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}

		if err := f.router.Post(bus.ObservationEvent, obs); err != nil {
			if errors.Is(err, bus.ErrCapacityReached) {
				f.logger.Warn("dropping observation", zap.Time("ts", obs.TimeStamp), zap.Error(err))
				continue
			}
			return err
		}
	}
}

// RunForever reconnects after every dropped connection until ctx is done.
func (f *Feed) RunForever(ctx context.Context, backoff time.Duration) {
	for {
		if err := f.Run(ctx); err != nil {
			f.logger.Warn("feed disconnected", zap.String("url", f.url), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (f *Feed) subscribe(conn *websocket.Conn) error {
	if len(f.symbols) == 0 {
		return nil
	}
	msg, err := subscription(f.symbols)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		return fmt.Errorf("unable to subscribe: %w", err)
	}
	return conn.SetWriteDeadline(time.Time{})
}
