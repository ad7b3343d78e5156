// Package http serves the planner pages. Navigation mirrors the planning
// workflow: a public landing and login page, and the plan, venue, course and
// timetable views behind the session guard.
package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/explanner/planner-client/internal/config"
	"github.com/explanner/planner-client/internal/transport/http/middleware"
)

const (
	loginPath = "/login"
	planPath  = "/plan"
)

// NewRouter wires middleware, templates and routes into a gin engine.
func NewRouter(h *Handler, cfg *config.Config, log *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.LoadHTMLGlob(cfg.TemplatesGlob)
	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
	}

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, planPath) })
	r.GET("/home-page", h.HomePage)
	r.GET(loginPath, h.LoginPage)
	r.POST(loginPath, middleware.RateLimitPerIP(5, 10, 1024, time.Hour), h.LoginSubmit)
	r.POST("/logout", h.Logout)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	protected := r.Group("/", RequireSession(h.store))
	protected.GET(planPath, h.PlanPage)
	protected.POST(planPath, h.PlanSubmit)
	protected.GET("/venues", h.VenuesPage)
	protected.POST("/venues", h.VenueCreate)
	protected.GET("/courses", h.CoursesPage)
	protected.POST("/courses", h.CourseCreate)
	protected.GET("/time-table", h.TimeTablePage)

	return r
}
