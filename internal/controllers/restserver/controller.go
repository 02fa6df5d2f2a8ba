// Package restserver serves a read-only view of the most recent grid snapshot.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/snowtiles/internal/storage"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SnapshotSource provides the latest published snapshot
type SnapshotSource interface {
	Latest() (types.GridSnapshot, bool)
}

// HealthSource reports telemetry sink health
type HealthSource interface {
	GetAllHealth() map[string]storage.Health
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	source     SnapshotSource
	health     HealthSource
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller. health may be nil.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, source SnapshotSource, health HealthSource, logger *zap.SugaredLogger) (*Controller, error) {
	if source == nil {
		return nil, fmt.Errorf("REST server needs a snapshot source")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultRESTPort)
		rc.Port = config.DefaultRESTPort
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		source:     source,
		health:     health,
		logger:     logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		var err error
		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			err = c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Handler returns the router, for tests and embedding
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	router.HandleFunc("/grid", c.handlers.GetGrid).Methods(http.MethodGet)
	router.HandleFunc("/tiles", c.handlers.GetTiles).Methods(http.MethodGet)
	router.HandleFunc("/tiles/{row:-?[0-9]+}/{col:-?[0-9]+}", c.handlers.GetTile).Methods(http.MethodGet)
	router.HandleFunc("/summary", c.handlers.GetSummary).Methods(http.MethodGet)
	router.HandleFunc("/forcing", c.handlers.GetForcing).Methods(http.MethodGet)
	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(c.handlers.NotFound)
	return router
}

func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		c.logger.Debugw("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
