package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

func (j *Queue) HandleSchedulePostTask(ctx context.Context, task *asynq.Task) error {
	var payload SchedulePostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return j.pub.PublishPost(ctx, payload.PostID)
}

// HandleProvisionWorkspaceTask finishes account setup after signup. Until it
// runs, connect attempts for the user are rejected with WORKSPACE_NOT_READY.
func (j *Queue) HandleProvisionWorkspaceTask(ctx context.Context, task *asynq.Task) error {
	var payload ProvisionWorkspacePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if err := j.u.SetWorkspaceReady(ctx, payload.UserID); err != nil {
		log.Printf("Error provisioning workspace for UserID %d: %v", payload.UserID, err)
		return err
	}
	return nil
}
