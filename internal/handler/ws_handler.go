package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examind/proctor/internal/config"
	"github.com/examind/proctor/internal/middleware"
	"github.com/examind/proctor/internal/service"
	ws "github.com/examind/proctor/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the WebSocket proctor stream. The stream is
// ingest-only telemetry: the test-taking flow never depends on it.
type WSHandler struct {
	rdb           *redis.Client
	resultService *service.ResultService
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, resultService *service.ResultService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:           rdb,
		resultService: resultService,
		log:           log.With().Str("component", "ws_handler").Logger(),
		upgrader:      buildUpgrader(allowedOrigins),
	}
}

// ProctorStream godoc
// WS /ws/v1/tests/:test_id/proctor
// Upgrades to WebSocket and ingests violation reports and progress
// heartbeats while a student takes a test.
func (h *WSHandler) ProctorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	studentID := claims.StudentID

	attempted, err := h.resultService.HasAttempted(c.Request.Context(), testID, studentID)
	if err != nil {
		h.log.Error().Err(err).Msg("Attempt check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if attempted {
		ws.WriteError(conn, "test already attempted")
		return
	}

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("test_id", testID.String()).
		Logger()

	wsLog.Info().Msg("Proctor stream connected")

	for {
		raw, err := ws.ReadRaw(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Proctor stream closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, raw, studentID, testID)
		case ws.ActionProgress:
			h.handleProgress(conn, wsLog, raw, studentID, testID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

// handleViolation queues a violation report for asynchronous
// persistence by the violation worker.
func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, raw []byte, studentID int, testID uuid.UUID) {
	ctx := context.Background()

	var msg ws.ViolationRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Kind == "" {
		ws.WriteError(conn, "kind is required")
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"student_id": studentID,
		"test_id":    testID.String(),
		"kind":       msg.Kind,
		"count":      msg.Count,
		"timestamp":  msg.Timestamp,
	})
	if err := h.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		wsLog.Error().Err(err).Msg("Violation enqueue failed")
		ws.WriteError(conn, "save failed")
		return
	}

	wsLog.Info().
		Str("kind", msg.Kind).
		Int("count", msg.Count).
		Msg("Violation recorded")

	ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Status: "recorded"})
}

// handleProgress stores the latest heartbeat so a live proctor view can
// show who is where. Only the most recent heartbeat is kept.
func (h *WSHandler) handleProgress(conn *websocket.Conn, wsLog zerolog.Logger, raw []byte, studentID int, testID uuid.UUID) {
	ctx := context.Background()

	var msg ws.ProgressRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed progress")
		return
	}

	progressKey := config.CacheKey.StudentProgressKey(testID.String(), studentID)
	err := h.rdb.HSet(ctx, progressKey, map[string]interface{}{
		"answered":         msg.Answered,
		"time_left":        msg.TimeLeft,
		"current_question": msg.CurrentQuestion,
	}).Err()
	if err != nil {
		wsLog.Error().Err(err).Msg("Progress save failed")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Status: "saved"})
}
