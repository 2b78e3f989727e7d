package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks happen at the CORS layer; the dev UI connects
		// from file:// with no Origin header.
		return true
	},
}

// WebSocketAlignRequest is a frame-alignment request over WebSocket.
// Image carries the encoded frame (base64 in JSON).
type WebSocketAlignRequest struct {
	Type  string `json:"type"` // "image"
	Image []byte `json:"image,omitempty"`
}

// WebSocketAlignResponse streams alignment progress and the final
// summary back to the client.
type WebSocketAlignResponse struct {
	Type      string       `json:"type"`
	Status    string       `json:"status"` // "processing", "completed", "error"
	Progress  float64      `json:"progress,omitempty"`
	Result    *AlignResult `json:"result,omitempty"`
	Image     string       `json:"image,omitempty"` // base64 PNG of the aligned frame
	Error     string       `json:"error,omitempty"`
	ErrorType string       `json:"error_type,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// wsWriter is the slice of *websocket.Conn the senders need.
type wsWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// alignWebSocketHandler upgrades the connection and aligns frames sent
// by the client one at a time, streaming progress per frame.
func (s *Server) alignWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("websocket connection established", "remote_addr", r.RemoteAddr)
	s.serveWebSocket(r, conn)
}

func (s *Server) serveWebSocket(r *http.Request, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Keep the connection alive between frames.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("websocket read failed", "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(r, conn, data)
		}
	}
}

func (s *Server) handleWebSocketMessage(r *http.Request, conn *websocket.Conn, data []byte) {
	var req WebSocketAlignRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	s.sendWebSocketResponse(conn, WebSocketAlignResponse{
		Type:      "align_response",
		Status:    "processing",
		Progress:  0.0,
		RequestID: requestID,
	})

	switch req.Type {
	case "image":
		s.processWebSocketImage(r, conn, req, requestID)
	default:
		s.sendWebSocketError(conn, "invalid_request", "Unsupported request type: "+req.Type)
	}
}

func (s *Server) processWebSocketImage(r *http.Request, conn *websocket.Conn, req WebSocketAlignRequest, requestID string) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No image data provided")
		return
	}
	if int64(len(req.Image)) > s.cfg.MaxUploadMB*1024*1024 {
		s.sendWebSocketError(conn, "invalid_request", "Image too large")
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Image)))

	img, _, err := image.Decode(bytes.NewReader(req.Image))
	if err != nil {
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketAlignResponse{
		Type:      "align_response",
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	start := time.Now()
	res, err := s.aligner.AlignImage(r.Context(), img)
	duration := time.Since(start)

	if err != nil {
		alignRequestsTotal.WithLabelValues("websocket_image", "error").Inc()
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Alignment failed: %v", err))
		return
	}

	alignRequestsTotal.WithLabelValues("websocket_image", "success").Inc()
	alignProcessingDuration.WithLabelValues("websocket_image").Observe(duration.Seconds())
	alignConfidence.WithLabelValues("websocket_image").Observe(res.Confidence)

	summary := summarize(res)
	s.sendWebSocketResponse(conn, WebSocketAlignResponse{
		Type:      "align_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    &summary,
		Image:     encodeFramePNG(res.Image),
		RequestID: requestID,
	})
}

// encodeFramePNG renders the aligned frame as base64 PNG for the JSON
// channel. Encoding failures return an empty string; the summary still
// goes out.
func encodeFramePNG(img image.Image) string {
	if img == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func (s *Server) sendWebSocketResponse(conn wsWriter, response WebSocketAlignResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("marshaling websocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("sending websocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendWebSocketError(conn wsWriter, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketAlignResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	})
}
