package queue

import (
	"github.com/socialdeck/socialdeck/internal/repository"
	"github.com/socialdeck/socialdeck/internal/service"
)

type Queue struct {
	pub service.PublisherService
	u   repository.UserRepository
}

func NewQueue(pub service.PublisherService, u repository.UserRepository) *Queue {
	return &Queue{
		pub: pub,
		u:   u,
	}
}

const (
	TaskTypeSchedulePost       = "schedule:post"
	TaskTypeProvisionWorkspace = "workspace:provision"
)

type SchedulePostPayload struct {
	PostID int64 `json:"post_id"`
}

type ProvisionWorkspacePayload struct {
	UserID int64 `json:"user_id"`
}
