package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/middleware/redis"
)

const checkTimeout = 2 * time.Second

// Check reports whether one downstream dependency is usable.
type Check func(ctx context.Context) error

type Handle struct {
	checks map[string]Check
}

func New(checks map[string]Check) *Handle {
	return &Handle{checks: checks}
}

// Postgres pings the shared gorm pool.
func Postgres(ctx context.Context) error {
	ds := db.DB()
	if ds == nil {
		return errNotInitialized
	}
	sqlDB, err := ds.DBIns().DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Redis(ctx context.Context) error {
	rc := redis.GetClient()
	if rc == nil {
		return errNotInitialized
	}
	return rc.Ping(ctx).Err()
}

var errNotInitialized = errors.New("not_initialized")

func (h *Handle) Health(g *gin.Context) {
	g.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Live only tells the process is serving.
func (h *Handle) Live(g *gin.Context) {
	g.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every registered check.
func (h *Handle) Ready(g *gin.Context) {
	ctx, cancel := context.WithTimeout(g.Request.Context(), checkTimeout)
	defer cancel()

	checks := gin.H{}
	healthy := true
	for name, check := range h.checks {
		switch err := check(ctx); {
		case errors.Is(err, errNotInitialized):
			checks[name] = err.Error()
			healthy = false
		case err != nil:
			checks[name] = "unhealthy"
			healthy = false
		default:
			checks[name] = "ok"
		}
	}

	status, msg := http.StatusOK, "ready"
	if !healthy {
		status, msg = http.StatusServiceUnavailable, "not_ready"
	}
	g.JSON(status, gin.H{
		"status": msg,
		"checks": checks,
	})
}
