package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/realtime"
	support "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/domain"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	repoAdapter "github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/persistence/repository/adapter"
)

// SupportSocketController handles the websocket endpoint participants keep
// open to receive match requests, lifecycle warnings and session-end notices.
// Inbound frames double as presence signals: a "heartbeat" frame refreshes
// LastSeen and an "activity" frame refreshes the named session.
type SupportSocketController struct {
	router          *realtime.Router
	heartbeatUC     *usecase.RecordHeartbeatUseCase
	touchUC         *usecase.TouchSessionUseCase
	inflightTimeout time.Duration
}

func NewSupportSocketController(pool *pgxpool.Pool, router *realtime.Router) *SupportSocketController {
	repo := repoAdapter.NewPgSupportRepository(pool)
	return &SupportSocketController{
		router:          router,
		heartbeatUC:     usecase.NewRecordHeartbeatUseCase(repo),
		touchUC:         usecase.NewTouchSessionUseCase(repo),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

type inboundFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until the
// client disconnects.
func (ctl *SupportSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		participantID := callerID(c)
		if participantID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "participant id is required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			return
		}

		conn := realtime.NewConnection(participantID, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 16)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		handshakeAck := ackFrame{Type: "connected"}
		if payload, err := json.Marshal(handshakeAck); err == nil {
			_ = conn.Send(payload)
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				ctl.replyError(conn, "read_error", err.Error())
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case "heartbeat":
				ctl.handleHeartbeat(c, conn, participantID)
			case "activity":
				ctl.handleActivity(c, conn, participantID, frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *SupportSocketController) handleHeartbeat(c *gin.Context, conn *realtime.Connection, participantID string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	err := ctl.heartbeatUC.Execute(ctx, usecase.RecordHeartbeatInput{
		ParticipantID: participantID,
		Now:           time.Now().UTC(),
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	ack := ackFrame{Type: "heartbeat_ack"}
	if payload, err := json.Marshal(ack); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *SupportSocketController) handleActivity(c *gin.Context, conn *realtime.Connection, participantID string, frame inboundFrame) {
	if frame.SessionID == "" {
		ctl.replyError(conn, "bad_request", "session_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	err := ctl.touchUC.Execute(ctx, usecase.TouchSessionInput{
		SessionID:     frame.SessionID,
		ParticipantID: participantID,
		Now:           time.Now().UTC(),
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	ack := ackFrame{Type: "activity_ack", SessionID: frame.SessionID}
	if payload, err := json.Marshal(ack); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *SupportSocketController) handleUseCaseError(conn *realtime.Connection, err error) {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		ctl.replyError(conn, "internal_error", "unexpected persistence error")
	case errors.Is(err, support.ErrNotSessionMember):
		ctl.replyError(conn, "forbidden", "participant is not a member of this session")
	default:
		ctl.replyError(conn, "bad_request", err.Error())
	}
}

func (ctl *SupportSocketController) replyError(conn *realtime.Connection, code string, message string) {
	frame := errorFrame{
		Type:  "error",
		Code:  code,
		Error: message,
	}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}
