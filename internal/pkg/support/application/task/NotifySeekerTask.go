package task

import (
	"context"
	"encoding/json"
	"time"

	qport "github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/queue/port"
	"github.com/burkjackson/RecoveryBridge-sub001/internal/pkg/support/application/usecase"
	"github.com/burkjackson/RecoveryBridge-sub001/pkg/logger"
)

// notifyPayload mirrors the JSON enqueued by NotifySeekerUseCase.schedule.
type notifyPayload struct {
	SeekerID string `json:"seekerId"`
}

// RegisterNotifyTasks binds the deferred notification stages to the worker
// server. Handlers re-run the notifier use case, whose own state re-check
// makes a late firing a safe no-op (the seeker may have been matched or may
// have cancelled since the task was scheduled).
func RegisterNotifyTasks(srv qport.Server, notify *usecase.NotifySeekerUseCase, log *logger.Logger) {
	bind := func(taskType string, stage usecase.NotifyStage) {
		srv.Register(taskType, func(ctx context.Context, t qport.Task) error {
			var p notifyPayload
			if err := json.Unmarshal(t.Payload, &p); err != nil {
				// malformed payload: retrying cannot help
				log.WithField("task", taskType).Errorf("bad task payload: %v", err)
				return nil
			}

			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			return notify.Execute(ctx, usecase.NotifySeekerInput{
				SeekerID: p.SeekerID,
				Stage:    stage,
				Now:      time.Now().UTC(),
			})
		})
	}

	bind(usecase.FanoutTaskType, usecase.StageFanout)
	bind(usecase.EscalateTaskType, usecase.StageEscalation)
}
