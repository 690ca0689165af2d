package simulate

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/okian/slate/pkg/logger"
)

// feedWatcher counts live feed messages while the simulation runs, to show
// that observation keeps up with dispatch.
type feedWatcher struct {
	conn        *websocket.Conn
	boardWrites int64
	phases      int64
	done        chan struct{}
}

// watchFeed connects to the WebSocket feed and counts messages until the
// connection or context ends. A nil watcher is returned when the feed is
// unreachable; the simulation proceeds without it.
func watchFeed(ctx context.Context, config *Config) *feedWatcher {
	wsURL := strings.Replace(config.BaseURL, "http", "ws", 1) + "/ws"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		logger.Get().Warn(ctx, "live feed unavailable; continuing without it",
			logger.String("url", wsURL), logger.Error(err))
		return nil
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	w := &feedWatcher{conn: conn, done: make(chan struct{})}
	go w.run(ctx)
	return w
}

func (w *feedWatcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var msg FeedMessage
		if err := w.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Kind {
		case "board_write":
			atomic.AddInt64(&w.boardWrites, 1)
		case "phase":
			atomic.AddInt64(&w.phases, 1)
		}
	}
}

// stop closes the feed connection and folds the counters into stats.
func (w *feedWatcher) stop(stats *Stats) {
	if w == nil {
		return
	}
	_ = w.conn.Close()
	<-w.done
	stats.FeedBoardWrites = atomic.LoadInt64(&w.boardWrites)
	stats.FeedPhases = atomic.LoadInt64(&w.phases)
}
