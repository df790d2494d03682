package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"gallery-backend/internal/images"
	"gallery-backend/internal/services/health"
	"gallery-backend/internal/shared/config"
	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/server/middleware"
	"gallery-backend/internal/shared/server/respond"
	"gallery-backend/internal/shared/storage/object"
)

const uploadRateGroup = "UPLOAD"

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config       config.Config
	ImageHandler *images.Handler
	Health       *health.Service
	// LocalFiles, when set, serves stored objects under /<ObjectPrefix>/.
	LocalFiles object.ObjectStore
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.SecurityHeaders(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	if deps.Config.UploadsPerMinute > 0 {
		burst := int(deps.Config.UploadsPerMinute)
		if burst < 1 {
			burst = 1
		}
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/upload" {
					return uploadRateGroup
				}
				return ""
			},
			Rules: map[string]middleware.RateLimitRule{
				uploadRateGroup: {Rate: deps.Config.UploadsPerMinute / 60.0, Burst: burst},
			},
		}))
	}

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, healthSvc.Status())
	})
	if deps.ImageHandler != nil {
		deps.ImageHandler.RegisterRoutes(api)
	}

	r.GET("/metrics", metrics.Handler())

	if deps.LocalFiles != nil {
		prefix := object.NormalizePrefix(deps.Config.ObjectPrefix)
		r.GET("/"+prefix+"/:key", serveObject(deps.LocalFiles))
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

// serveObject streams a stored object so locally stored image URLs resolve.
func serveObject(store object.ObjectStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.Param("key"))
		if !object.ValidKey(key) {
			respond.Error(c, http.StatusNotFound, "not_found", "object not found", nil)
			return
		}
		rc, err := store.Open(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) || errors.Is(err, object.ErrInvalidKey) {
				respond.Error(c, http.StatusNotFound, "not_found", "object not found", nil)
				return
			}
			c.Set(respond.CauseKey, err.Error())
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to read object", nil)
			return
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			c.Set(respond.CauseKey, err.Error())
			respond.Error(c, http.StatusInternalServerError, "storage_error", "failed to read object", nil)
			return
		}
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
