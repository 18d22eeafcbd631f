package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/GriffinCanCode/ncube-web/internal/bundle"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/ncube-web/internal/release"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Fetcher downloads the upstream release bundle. *release.Fetcher
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// ReleaseProxy serves the latest release bundle from upstream so pages can
// fetch it same-origin.
type ReleaseProxy struct {
	fetcher Fetcher
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewReleaseProxy creates the proxy handler. breaker, metrics and logger
// may be nil.
func NewReleaseProxy(fetcher Fetcher, breaker *resilience.Breaker, metrics *monitoring.Metrics, logger *zap.Logger) *ReleaseProxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReleaseProxy{fetcher: fetcher, breaker: breaker, metrics: metrics, logger: logger}
}

// ExactURL runs next only when the request URL carries no query string, so
// the route matches the whole URL and not just its path. Anything else goes
// to fallback.
func ExactURL(next, fallback gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.RawQuery != "" || c.Request.URL.ForceQuery {
			fallback(c)
			return
		}
		next(c)
	}
}

// LatestRelease fetches the bundle and relays it. Any failure is a bare
// 500; the client treats that as a network error.
func (p *ReleaseProxy) LatestRelease(c *gin.Context) {
	ctx := c.Request.Context()
	fetch := func() ([]byte, error) { return p.fetcher.Fetch(ctx) }

	var (
		data []byte
		err  error
	)
	if p.breaker != nil {
		data, err = resilience.Do(p.breaker, fetch)
	} else {
		data, err = fetch()
	}
	p.metrics.RecordReleaseFetch(err, len(data))

	if err != nil {
		p.logger.Error("release fetch failed", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if id, err := bundle.Fingerprint(data); err == nil {
		c.Header("ETag", strconv.Quote(id.String()))
	}
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, release.OctetStream, data)
}
