package http

import (
	"net/http"

	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/resilience"
	"github.com/gin-gonic/gin"
)

// SessionCounter reports live sessions. *session.Manager implements it.
type SessionCounter interface {
	Count() int
}

// Handlers holds the small status endpoints.
type Handlers struct {
	sessions SessionCounter
	breaker  *resilience.Breaker
}

// NewHandlers creates a new handler set
func NewHandlers(sessions SessionCounter, breaker *resilience.Breaker) *Handlers {
	return &Handlers{sessions: sessions, breaker: breaker}
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "ncube",
	}
	if h.sessions != nil {
		resp["sessions"] = h.sessions.Count()
	}
	if h.breaker != nil {
		resp["upstream"] = gin.H{
			"breaker": h.breaker.Name(),
			"state":   h.breaker.State().String(),
		}
	}
	c.JSON(http.StatusOK, resp)
}
