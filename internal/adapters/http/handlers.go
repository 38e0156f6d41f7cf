package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const apiKeyHeader = "X-API-Key"

type PublishResponse struct {
	OK     bool `json:"ok"`
	SentTo int  `json:"sentTo"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// publishHandler is the HTTP trigger: POST {room, payload, metadata?}.
func publishHandler(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := o.AuthorizePublish(c.GetHeader(apiKeyHeader)); err != nil {
			log.Warn().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("publish rejected: bad api key")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}

		var req domain.TriggerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
			return
		}
		room, err := domain.ParseRoomName(req.Room)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		res, err := o.Publish(room, req.Payload, req.Metadata)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrRoomRequired) {
				status = http.StatusBadRequest
			}
			log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("publish failed")
			c.JSON(status, ErrorResponse{Error: err.Error()})
			return
		}
		log.Info().Str("module", "adapters.http").Str("room", string(room)).Int("sent_to", res.SendTo).Msg("published")
		c.JSON(http.StatusOK, PublishResponse{OK: true, SentTo: res.SendTo})
	}
}

func healthHandler(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": o.Registry.Len(),
			"rooms":       o.Rooms.Len(),
			"ts":          domain.UnixMillis(o.Now()),
		})
	}
}

func roomsHandler(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	}
}
