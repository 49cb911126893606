// Package httpapi exposes the student and theme catalogs over HTTP using gin.
package httpapi

import (
	"context"
	"expvar"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"tutorcore/internal/core"
	"tutorcore/pkg/domain"
)

// StudentService is the student catalog surface served by the API.
type StudentService interface {
	ListStudents(ctx context.Context) ([]domain.Student, error)
	ListStudentThemeViews(ctx context.Context) ([]domain.StudentThemeView, error)
	GetStudent(ctx context.Context, id int64) (domain.Student, error)
	AddStudent(ctx context.Context, raw string) (domain.Student, error)
	DeleteStudent(ctx context.Context, id int64) error
}

// ThemeService is the theme catalog surface served by the API.
type ThemeService interface {
	ValidateGradeLabel(raw string) error
	ListGradeThemeViews(ctx context.Context) ([]domain.GradeThemeView, error)
	GetTheme(ctx context.Context, id int64) (domain.Theme, error)
	AddTheme(ctx context.Context, grade, name string) (domain.Theme, error)
	RenameTheme(ctx context.Context, id int64, name string) (domain.Theme, error)
	DeleteTheme(ctx context.Context, id int64) error
	AddDictation(ctx context.Context, themeID int64, text string) (domain.Dictation, error)
	ListDictations(ctx context.Context, themeID int64) ([]domain.Dictation, error)
}

// Config wires the router. Students and Themes are required.
type Config struct {
	Students StudentService
	Themes   ThemeService
	Logger   core.Logger
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// ServiceName enables otelgin server spans when non-empty.
	ServiceName  string
	AllowOrigins []string
	// Expvar serves the expvar registry at /debug/vars.
	Expvar bool
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(cfg Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(RequestID(), RequestLogger(cfg.Logger))
	if len(cfg.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Content-Type", headerRequestID},
		}))
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	if cfg.Expvar {
		router.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	}

	h := &handler{students: cfg.Students, themes: cfg.Themes}
	api := router.Group("/api/v1")
	{
		api.GET("/students", h.listStudents)
		api.GET("/students/themes", h.listStudentThemes)
		api.POST("/students", h.addStudent)
		api.GET("/students/:id", h.getStudent)
		api.DELETE("/students/:id", h.deleteStudent)

		api.POST("/grades/validate", h.validateGrade)

		api.GET("/themes", h.listGradeThemes)
		api.POST("/themes", h.addTheme)
		api.GET("/themes/:id", h.getTheme)
		api.PATCH("/themes/:id", h.renameTheme)
		api.DELETE("/themes/:id", h.deleteTheme)
		api.GET("/themes/:id/dictations", h.listDictations)
		api.POST("/themes/:id/dictations", h.addDictation)
	}
	return router
}
