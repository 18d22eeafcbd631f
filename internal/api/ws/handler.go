// Package ws connects browser pages to their sessions over a websocket.
// Each connection opens one session; outbound session messages are written
// as JSON text frames and inbound frames are decoded and forwarded.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ncube-web/internal/session"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 8 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Sessions opens and closes sessions. *session.Manager implements it.
type Sessions interface {
	Open(ctx context.Context) (*session.Session, error)
	Close(ctx context.Context, id string) error
}

// Handler manages WebSocket connections
type Handler struct {
	sessions Sessions
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(sessions Sessions, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, metrics: metrics, logger: logger}
}

// HandleConnection upgrades the request and serves one session until
// either side goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	// The session outlives the request context only as long as the
	// connection; it is closed below when reading stops.
	ctx := context.WithoutCancel(c.Request.Context())
	s, err := h.sessions.Open(ctx)
	if err != nil {
		h.logger.Error("session open failed", zap.Error(err))
		h.write(conn, session.Message{Type: session.TypeError, Error: err.Error(), Timestamp: time.Now().Unix()})
		return
	}
	logger := h.logger.With(zap.String("session", s.ID()))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for m := range s.Outbound() {
			if err := h.write(conn, m); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				// Keep draining so the session never blocks on us.
				continue
			}
		}
	}()

	h.readLoop(conn, s, logger)

	if err := h.sessions.Close(ctx, s.ID()); err != nil {
		logger.Warn("session close failed", zap.Error(err))
	}
	wg.Wait()
}

func (h *Handler) readLoop(conn *websocket.Conn, s *session.Session, logger *zap.Logger) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var in session.Inbound
		if err := sonic.Unmarshal(data, &in); err != nil {
			h.metrics.RecordWSMessage("inbound", "invalid")
			logger.Debug("invalid websocket message", zap.Error(err))
			continue
		}
		h.metrics.RecordWSMessage("inbound", in.Type)
		if err := s.Send(in); err != nil {
			return
		}
	}
}

// write must only be called by one goroutine at a time: the outbound pump,
// or HandleConnection before the pump starts.
func (h *Handler) write(conn *websocket.Conn, m session.Message) error {
	data, err := sonic.Marshal(m)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
