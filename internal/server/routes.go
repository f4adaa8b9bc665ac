package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"vitalog/internal/auth"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Platform"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Use(LoggerMiddleware)

	// Public routes
	e.GET("/health", s.healthHandler)
	e.POST("/signup", auth.SignupHandler)
	e.POST("/login", auth.LoginHandler)
	e.POST("/auth/refresh", auth.RefreshHandler)

	// Protected routes
	protected := e.Group("")
	protected.Use(auth.JwtAuthMiddleware)

	protected.GET("/logout", auth.LogoutHandler)

	// Reading routes. The most specific paths are registered before the
	// parameterized :reading_id routes so /stats and /export never bind as
	// identifiers.
	protected.GET("/health/weight/bmi", s.readings.GetWeightBMIHandler)
	protected.GET("/health/:family/stats", s.readings.GetStatsHandler)
	protected.GET("/health/:family/export", s.readings.ExportReadingsHandler)
	protected.POST("/health/:family", s.readings.CreateReadingHandler)
	protected.GET("/health/:family", s.readings.ListReadingsHandler)
	protected.PUT("/health/:family/:reading_id", s.readings.UpdateReadingHandler)
	protected.DELETE("/health/:family/:reading_id", s.readings.DeleteReadingHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.db.Health())
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}
