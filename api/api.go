package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/berizaryad/maintenance-backend/internal/identity"
	"github.com/berizaryad/maintenance-backend/internal/middleware"
	"github.com/berizaryad/maintenance-backend/internal/o11y"
	"github.com/berizaryad/maintenance-backend/media"
	"github.com/berizaryad/maintenance-backend/profile"
	"github.com/berizaryad/maintenance-backend/station"
)

type Config struct {
	JWTIssuer   string
	JWTAudience string
	JWTSecret   []byte

	MetricsUsername string
	MetricsPassword string
}

type API struct {
	r        *gin.Engine
	sr       *station.Repository
	pr       *profile.Repository
	provider identity.Client
	uploader *media.Uploader
}

func New(sr *station.Repository, pr *profile.Repository, provider identity.Client, uploader *media.Uploader, obs *o11y.Observability, cfg Config) (*API, error) {
	a := &API{
		r:        gin.New(),
		sr:       sr,
		pr:       pr,
		provider: provider,
		uploader: uploader,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(obs.Logger))
	a.r.Use(middleware.Metrics(obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	metricsHandler := gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	if cfg.MetricsUsername != "" {
		a.r.GET("/metrics",
			gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}),
			metricsHandler)
	} else {
		a.r.GET("/metrics", metricsHandler)
	}

	a.r.POST("/auth/signup", a.signupHandler)
	a.r.POST("/auth/signin", a.signinHandler)

	auth, err := middleware.JWTAuth(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	protected := a.r.Group("/", auth)
	protected.POST("/auth/logout", a.logoutHandler)

	protected.GET("/profile", a.profileHandler)
	protected.PUT("/profile", a.updateProfileHandler)

	protected.GET("/stations", a.stationsHandler)
	protected.GET("/stations/:id", a.stationHandler)
	protected.PUT("/stations/:id/urgent", a.setUrgentHandler)
	protected.PUT("/stations/:id/responsible", a.setResponsibleHandler)
	protected.POST("/stations/:id/serviced", a.markServicedHandler)
	protected.POST("/stations/:id/reset", a.resetServiceHandler)
	protected.POST("/stations/serviced", a.markMultipleServicedHandler)
	protected.POST("/stations/:id/photos", a.uploadPhotoHandler)

	return a, nil
}

func (a *API) Router() *gin.Engine {
	return a.r
}
