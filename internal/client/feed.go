package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	ws "github.com/examind/proctor/internal/websocket"
)

// ProctorFeed pushes violation and progress events to the server's
// proctor stream over WebSocket. The feed is strictly best-effort: a
// dead or absent connection never affects the session itself. Reports
// are queued and written by a dedicated goroutine, so callers never
// wait on the socket; when the queue is full the oldest event is
// dropped.
type ProctorFeed struct {
	url string
	log zerolog.Logger

	mu     sync.Mutex
	closed bool
	out    chan interface{}
}

// NewProctorFeed builds a feed for one test's proctor stream. baseURL
// is the HTTP API base; the ws scheme is derived from it.
func NewProctorFeed(baseURL, token string, testID uuid.UUID, log zerolog.Logger) *ProctorFeed {
	wsBase := strings.Replace(baseURL, "http", "ws", 1)
	wsBase = strings.TrimSuffix(wsBase, "/api/v1")
	return &ProctorFeed{
		url: fmt.Sprintf("%s/ws/v1/tests/%s/proctor?token=%s", wsBase, testID, token),
		log: log.With().Str("component", "proctor_feed").Logger(),
		out: make(chan interface{}, 32),
	}
}

// Connect dials the proctor stream and starts the writer. Failure is
// logged and swallowed; queued events are then simply never sent.
func (f *ProctorFeed) Connect(ctx context.Context) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, http.Header{})
	if err != nil {
		f.log.Warn().Err(err).Msg("Proctor stream unavailable")
		return
	}
	go f.writeLoop(conn)
	f.log.Info().Msg("Proctor stream connected")
}

// ReportViolation queues one violation event.
func (f *ProctorFeed) ReportViolation(kind string, count int) {
	f.send(ws.ViolationRequest{
		Action:    ws.ActionViolation,
		Kind:      kind,
		Count:     count,
		Timestamp: time.Now().Unix(),
	})
}

// ReportProgress queues a progress heartbeat.
func (f *ProctorFeed) ReportProgress(answered, timeLeft, current int) {
	f.send(ws.ProgressRequest{
		Action:          ws.ActionProgress,
		Answered:        answered,
		TimeLeft:        timeLeft,
		CurrentQuestion: current,
	})
}

// Close stops the writer and shuts the stream down. Reports after
// Close are discarded.
func (f *ProctorFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.out)
}

// send enqueues without ever blocking. A slow or stalled socket costs
// queued events, not caller latency.
func (f *ProctorFeed) send(v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.out <- v:
	default:
		select {
		case <-f.out:
		default:
		}
		select {
		case f.out <- v:
		default:
		}
	}
}

func (f *ProctorFeed) writeLoop(conn *websocket.Conn) {
	defer conn.Close()
	for v := range f.out {
		if err := ws.WriteTyped(conn, v); err != nil {
			f.log.Debug().Err(err).Msg("Proctor stream write failed, dropping connection")
			return
		}
	}
}
