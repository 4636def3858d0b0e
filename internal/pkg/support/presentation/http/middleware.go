package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/presentation/controller"
)

// ParticipantAuth resolves the calling participant from the X-Participant-ID
// header. Identity verification lives upstream (gateway/session service); this
// service only needs a stable participant id to key presence and sessions.
func ParticipantAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Participant-ID")
		if id == "" {
			id = c.Query("participant_id")
		}
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "participant id is required"})
			return
		}
		c.Set(controller.ParticipantIDKey, id)
		c.Next()
	}
}

// AdminAuth gates the moderation endpoints behind a shared token.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" || c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
