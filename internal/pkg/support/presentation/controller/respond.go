package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	repository "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/port"
)

// ParticipantIDKey is where the auth middleware stores the caller's identity.
const ParticipantIDKey = "participantID"

const requestTimeout = 3 * time.Second

// callerID returns the authenticated participant id set by the middleware.
func callerID(c *gin.Context) string {
	return c.GetString(ParticipantIDKey)
}

// respondError maps use case errors onto HTTP statuses. Expected contention
// outcomes are handled by the endpoints that produce them; this covers the
// shared tail.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrParticipantNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrBlockNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, support.ErrBlocked),
		errors.Is(err, support.ErrNotSessionMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error, please retry"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// sessionResponse is the wire shape for a support session.
type sessionResponse struct {
	ID            string     `json:"id"`
	ListenerID    string     `json:"listener_id"`
	SeekerID      string     `json:"seeker_id"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	EndReason     *string    `json:"end_reason,omitempty"`
}

func toSessionResponse(s *support.SupportSession) sessionResponse {
	resp := sessionResponse{
		ID:            s.ID,
		ListenerID:    s.ListenerID,
		SeekerID:      s.SeekerID,
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt,
		EndedAt:       s.EndedAt,
		LastMessageAt: s.LastMessageAt,
	}
	if s.EndReason != nil {
		r := string(*s.EndReason)
		resp.EndReason = &r
	}
	return resp
}
