// Package api exposes the sample store and analyses over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cytometry/internal/analysis"
	"cytometry/internal/archive"
	"cytometry/internal/filter"
	"cytometry/internal/metrics"
	"cytometry/internal/store"
)

// SampleStore is the sample CRUD surface.
type SampleStore interface {
	ListSamples(ctx context.Context) ([]store.Sample, error)
	FilterSamples(ctx context.Context, spec filter.Spec) ([]store.Sample, error)
	AddSample(ctx context.Context, sample store.Sample) error
	DeleteSample(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, samples []store.Sample) error
}

// Analyzer runs the read-only analyses.
type Analyzer interface {
	Frequencies(ctx context.Context) ([]analysis.Frequency, error)
	ResponseAnalysis(ctx context.Context, spec filter.Spec) ([]analysis.ResponseComparison, error)
	BaselineSummary(ctx context.Context) (analysis.Summary, error)
	FilterSummary(ctx context.Context, spec filter.Spec) (analysis.Summary, error)
}

// DefaultMaxUploadBytes caps the request body of an upload.
const DefaultMaxUploadBytes int64 = 32 << 20

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	samples   SampleStore
	analysis  Analyzer
	archive   archive.Archiver
	log       logrus.FieldLogger
	now       func() time.Time
	maxUpload int64
}

// NewHandler wires a Handler. A nil archiver discards uploads.
func NewHandler(samples SampleStore, an Analyzer, arch archive.Archiver, log logrus.FieldLogger) *Handler {
	if arch == nil {
		arch = archive.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{samples: samples, analysis: an, archive: arch, log: log, now: time.Now, maxUpload: DefaultMaxUploadBytes}
}

// WithMaxUpload sets the upload body limit. Non-positive values keep the default.
func (h *Handler) WithMaxUpload(n int64) *Handler {
	if n > 0 {
		h.maxUpload = n
	}
	return h
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log), metrics.Instrument(), corsMiddleware(allowedOrigins))

	router.GET("/healthcheck", healthCheckHandler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.POST("/upload", h.upload)
	api.GET("/samples", h.listSamples)
	api.POST("/samples", h.addSample)
	api.DELETE("/samples/:id", h.deleteSample)
	api.GET("/frequencies", h.frequencies)
	api.POST("/response-analysis", h.responseAnalysis)
	api.GET("/baseline-summary", h.baselineSummary)
	api.POST("/filter-summary", h.filterSummary)
	api.POST("/filter-samples", h.filterSamples)

	return router
}

func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// corsMiddleware reflects allowed origins with credentials. A "*" entry
// allows every origin but never with credentials. Preflight requests from
// other origins are refused.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	wildcard := allowed["*"]
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		ok := origin != "" && (allowed[origin] || wildcard)
		if ok {
			if allowed[origin] && origin != "*" {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			} else {
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			if !ok {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
