// Package service applies validation and the access policy before handing
// project and task mutations to the store.
package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"taskboard/internal/access"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

// Store is the persistence surface the service depends on.
type Store interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	ListUsers(ctx context.Context, excludeID int64) ([]models.UserSummary, error)
	MissingUsers(ctx context.Context, ids []int64) ([]int64, error)

	ListProjectsForUser(ctx context.Context, userID int64, query string) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
	CreateProject(ctx context.Context, leaderID int64, f sqlite.ProjectFields, memberIDs []int64) (models.Project, error)
	UpdateProject(ctx context.Context, id int64, f sqlite.ProjectFields, memberIDs *[]int64) (models.Project, error)
	DeleteProject(ctx context.Context, id int64) error

	ListTasks(ctx context.Context, projectID int64) ([]models.Task, error)
	GetTask(ctx context.Context, id int64) (models.Task, error)
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, id int64, title, description string, status models.TaskStatus) (models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Service orchestrates project and task operations for a requesting user.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for days-remaining calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New constructs a Service over store.
func New(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProjectDetail is a project together with what the requester may do on it.
type ProjectDetail struct {
	models.Project
	Capabilities access.Capabilities `json:"capabilities"`
}

func (s *Service) detail(p models.Project, requester int64) ProjectDetail {
	p.Derive(s.now())
	return ProjectDetail{Project: p, Capabilities: access.For(p, requester)}
}
