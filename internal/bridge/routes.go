package bridge

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rconduit/rconduit/internal/observability"
	"github.com/rconduit/rconduit/internal/rcon"
	"github.com/rs/zerolog/log"
)

type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.AllowedOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.up).String(),
			"component": "rcon-bridge",
			"console":   s.ConsoleState(),
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   s.ConsoleState() == rcon.StateReady.String(),
			"uptime":  time.Since(s.up).String(),
			"console": s.ConsoleState(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/v1/command", func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if strings.TrimSpace(req.Command) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "command required"})
			return
		}

		out, err := s.Execute(c.Request.Context(), req.Command)
		if err != nil {
			c.JSON(commandErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"command":  req.Command,
			"response": out,
		})
	})

	return r
}

func commandErrorStatus(err error) int {
	switch {
	case errors.Is(err, rcon.ErrPacketTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, rcon.ErrResponseTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, rcon.ErrAuthFailed),
		errors.Is(err, rcon.ErrConnClosed),
		errors.Is(err, rcon.ErrProtocolViolation):
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
