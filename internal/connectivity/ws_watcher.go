package connectivity

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSWatcher feeds a SignalMonitor from a long-lived websocket to the sync
// server: a successful dial reports online, a read failure reports offline,
// then the watcher redials with capped backoff. This gives the agent a
// platform reachability primitive without polling the HTTP endpoint.
type WSWatcher struct {
	endpoint string
	monitor  *SignalMonitor
	log      *zap.Logger
	dialer   *websocket.Dialer

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewWSWatcher(endpoint string, monitor *SignalMonitor, log *zap.Logger) *WSWatcher {
	return &WSWatcher{
		endpoint:   endpoint,
		monitor:    monitor,
		log:        log,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run blocks until ctx is canceled, maintaining the connection and reporting
// transitions to the monitor.
func (w *WSWatcher) Run(ctx context.Context) {
	backoff := w.minBackoff
	for {
		conn, _, err := w.dialer.DialContext(ctx, w.endpoint, nil)
		if err != nil {
			w.monitor.SetOnline(false)
			w.log.Debug("reachability dial failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > w.maxBackoff {
				backoff = w.maxBackoff
			}
			continue
		}

		backoff = w.minBackoff
		w.monitor.SetOnline(true)
		w.readUntilClosed(ctx, conn)
		w.monitor.SetOnline(false)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (w *WSWatcher) readUntilClosed(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				w.log.Debug("reachability connection lost", zap.Error(err))
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}
