package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/config"
	"github.com/vovakirdan/gamenode/internal/core"
)

// NewServer builds the node's HTTP server: health, metrics, debug dump and
// the websocket endpoint.
func NewServer(hub *core.Hub, cfg config.Config, gatherer prometheus.Gatherer, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	debug := NewDebugHandlers(hub, logger)
	router.GET("/debug/sessions", LoggerMiddleware(logger), debug.Sessions)

	// The websocket endpoint stays on the plain mux: the upgrade hijacks the
	// connection after writing 101, which gin's writer refuses.
	mux := stdhttp.NewServeMux()
	mux.Handle(cfg.WSPath(), NewWSHandler(hub, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
