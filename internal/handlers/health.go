package handlers

import (
	"net/http"
	"time"

	"replydesk/internal/config"
	"replydesk/internal/models"

	"github.com/labstack/echo/v4"
)

// HealthHandler handles basic health check requests
// @Summary Health check
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func HealthHandler(port string) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Port:      port,
		}

		return c.JSON(http.StatusOK, response)
	}
}

// StatusHandler reports server identity, configuration and activity counters
// @Summary Server status and counters
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /status [get]
func StatusHandler(cfg *config.Config, counters *Counters, st MessageStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		total, err := st.CountMessages(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		}

		response := models.StatusResponse{
			Server:           "replydesk",
			Version:          cfg.Version,
			Port:             cfg.Port,
			WebhookPath:      cfg.WebhookPath,
			MessagesReceived: counters.MessagesReceived(),
			MessagesTotal:    total,
			Connections:      counters.Connections(),
			UptimeSeconds:    counters.Uptime().Seconds(),
			AutoGenerate:     cfg.AutoGenerate,
		}

		return c.JSON(http.StatusOK, response)
	}
}
