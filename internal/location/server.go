package location

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"scanmap.klederson.com/internal/config"
)

// Logger logs each request with logrus.
func Logger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
			"client":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Debug("request")
	}
}

// FeatureCollection renders the track as points followed by the current fix
// flagged with isLast.
func FeatureCollection(fixes []Fix, current *Fix) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range fixes {
		fc.Append(geojson.NewFeature(f.Point.Orb()))
	}
	if current != nil {
		last := geojson.NewFeature(current.Point.Orb())
		last.Properties["isLast"] = true
		fc.Append(last)
	}
	return fc
}

// NewRouter builds the HTTP API over store.
func NewRouter(store *Store, source string, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Logger(log))

	r.GET(config.GJSONPath, func(c *gin.Context) {
		fixes, current := store.Snapshot()
		data, err := FeatureCollection(fixes, current).MarshalJSON()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Header("Access-Control-Allow-Origin", "*")
		c.Data(http.StatusOK, "application/json", data)
	})

	r.GET(config.KMLPath, func(c *gin.Context) {
		fixes, current := store.Snapshot()
		var buf bytes.Buffer
		if err := WriteKML(&buf, fixes, current); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "application/vnd.google-earth.kml+xml", buf.Bytes())
	})

	r.GET("/health", func(c *gin.Context) {
		resp := gin.H{
			"status":    "ok",
			"source":    source,
			"locations": store.Count(),
		}
		if last := store.LastSeen(); !last.IsZero() {
			resp["lastFix"] = last.UTC().Format(time.RFC3339)
		}
		c.JSON(http.StatusOK, resp)
	})

	return r
}

// Service runs a source collector and the HTTP API together.
type Service struct {
	store     *Store
	collector *Collector
	handler   http.Handler
	log       logrus.FieldLogger
}

// NewService wires src into a fresh store and router.
func NewService(src Source, fixTimeout time.Duration, log logrus.FieldLogger) *Service {
	store := NewStore()
	return &Service{
		store:     store,
		collector: NewCollector(src, store, config.SourceRetry, fixTimeout, log),
		handler:   NewRouter(store, src.Name(), log),
		log:       log,
	}
}

// Store returns the service's location store.
func (s *Service) Store() *Store { return s.store }

// Serve collects fixes and serves HTTP on ln until ctx is done.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.collector.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.WithField("addr", ln.Addr().String()).Info("location server listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
