package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxMessageBytes bounds one websocket frame; scans carry a base64 photo.
const maxMessageBytes = 16 << 20

// message is the envelope for every websocket frame in both directions.
type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type welcome struct {
	ClientID  string     `json:"client_id"`
	LastLogin *time.Time `json:"last_login"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	// Store client connection
	clientID := uuid.New().String()
	s.clients.Store(clientID, conn)
	defer s.clients.Delete(clientID)

	logger := s.logger.With(zap.String("client_id", clientID))
	logger.Info("client connected")

	// Requests outlive r.Context() once the connection is hijacked.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.sendMessage(conn, "welcome", welcome{ClientID: clientID, LastLogin: s.recordLogin(ctx)})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("error reading message", zap.Error(err))
			}
			break
		}

		var msg message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Debug("error parsing message", zap.Error(err))
			s.sendError(conn, "Invalid message format")
			continue
		}

		s.handleWebSocketMessage(ctx, conn, msg)
	}
	logger.Info("client disconnected")
}

// recordLogin stores this connection as the latest login and returns the
// previous one, if any.
func (s *Server) recordLogin(ctx context.Context) *time.Time {
	var previous *time.Time
	if t, err := s.db.LastLogin(ctx); err == nil {
		previous = &t
	}
	if err := s.db.RecordLastLogin(ctx, s.now()); err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}
	return previous
}

func (s *Server) handleWebSocketMessage(ctx context.Context, conn *websocket.Conn, msg message) {
	if s.debug {
		s.logger.Debug("received message", zap.String("type", msg.Type), zap.Int("bytes", len(msg.Data)))
	}

	switch msg.Type {
	case "search":
		var req searchRequest
		if !s.decodeData(conn, msg, &req) {
			return
		}
		s.sendMessage(conn, "search_result", s.searchFoods(ctx, req.Query, req.Limit))

	case "detail":
		var req detailRequest
		if !s.decodeData(conn, msg, &req) {
			return
		}
		s.sendMessage(conn, "detail_result", s.foodDetail(ctx, req.ID))

	case "scale":
		var req scaleRequest
		if !s.decodeData(conn, msg, &req) {
			return
		}
		item, err := s.scaleFood(req)
		if err != nil {
			s.sendError(conn, err.Error())
			return
		}
		s.sendMessage(conn, "scale_result", item)

	case "log_meal":
		var req mealRequest
		if !s.decodeData(conn, msg, &req) {
			return
		}
		entry, err := s.logMeal(ctx, req)
		if err != nil {
			s.logger.Warn("failed to log meal", zap.Error(err))
			s.sendError(conn, mealErrorMessage(err))
			return
		}
		s.sendMessage(conn, "meal_logged", entry)

	case "get_history":
		h, err := s.history(ctx)
		if err != nil {
			s.logger.Error("error retrieving history", zap.Error(err))
			s.sendError(conn, "Failed to retrieve history")
			return
		}
		s.sendMessage(conn, "history", h)

	case "scan":
		var req scanRequest
		if !s.decodeData(conn, msg, &req) {
			return
		}
		result, err := s.scanLabel(ctx, req)
		if err != nil {
			s.logger.Warn("error processing image", zap.Error(err))
			s.sendError(conn, "Failed to process image")
			return
		}
		s.sendMessage(conn, "scan_result", result)

	case "confirm_scan":
		var req confirmScanRequest
		if !s.decodeData(conn, msg, &req) {
			return
		}
		entry, err := s.confirmScan(ctx, req)
		if errors.Is(err, errScanNotPending) {
			s.sendError(conn, "Image data not found")
			return
		}
		if err != nil {
			s.logger.Error("error saving scan", zap.Error(err))
			s.sendError(conn, "Failed to save scan")
			return
		}
		s.sendMessage(conn, "scan_saved", entry)

	default:
		s.sendError(conn, "Unknown message type")
	}
}

func mealErrorMessage(err error) string {
	switch {
	case errors.Is(err, errInvalidGrams), errors.Is(err, errMissingFood), errors.Is(err, errInvalidItem):
		return err.Error()
	case errors.Is(err, errFoodLookup):
		return "Food not found"
	default:
		return "Failed to save meal"
	}
}

func (s *Server) decodeData(conn *websocket.Conn, msg message, v any) bool {
	if len(msg.Data) == 0 {
		msg.Data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		s.sendError(conn, "Invalid "+msg.Type+" data")
		return false
	}
	return true
}

func (s *Server) sendMessage(conn *websocket.Conn, messageType string, data any) {
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}

	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("error sending message", zap.String("type", messageType), zap.Error(err))
		return
	}
	if s.debug {
		s.logger.Debug("message sent", zap.String("type", messageType))
	}
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}

	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("error sending error message", zap.Error(err))
	}
}
