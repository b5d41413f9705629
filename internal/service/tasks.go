package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

// TaskInput is the payload of a create request.
type TaskInput struct {
	ProjectID   int64
	Title       string
	Description string
	Status      string
	// UserID is the assignee; the requester when nil.
	UserID *int64
}

// TaskPatch carries the fields of an update request; nil means keep.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
}

// ListTasks returns a project's tasks in creation order.
func (s *Service) ListTasks(ctx context.Context, requester, projectID int64) ([]models.Task, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !access.CanView(project, requester) {
		return nil, apperr.Forbidden("only the leader and members may view this project")
	}
	return project.Tasks, nil
}

// CreateTask adds a task to a project the requester belongs to.
func (s *Service) CreateTask(ctx context.Context, requester int64, in TaskInput) (models.Task, error) {
	var v apperr.Validation

	title := strings.TrimSpace(in.Title)
	validateTitle(&v, title)
	status := models.StatusCreated
	if in.Status != "" {
		status = parseStatus(&v, in.Status)
	}
	if in.ProjectID <= 0 {
		v.Add("project_id", "is required")
	}
	if err := v.Err(); err != nil {
		return models.Task{}, err
	}

	project, err := s.store.GetProject(ctx, in.ProjectID)
	if apperr.CodeOf(err) == apperr.CodeNotFound {
		v.Add("project_id", "does not reference an existing project")
		return models.Task{}, v.Err()
	}
	if err != nil {
		return models.Task{}, err
	}
	if !access.CanManageTasks(project, requester) {
		return models.Task{}, apperr.Forbidden("only the leader and members may add tasks")
	}

	assignee := requester
	if in.UserID != nil {
		assignee = *in.UserID
	}
	if !access.Member(project, assignee) {
		v.Add("user_id", "must be the project leader or a member")
		return models.Task{}, v.Err()
	}

	task, err := s.store.CreateTask(ctx, models.Task{
		ProjectID:   project.ID,
		UserID:      &assignee,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
	})
	if err != nil {
		return models.Task{}, err
	}
	s.logger.Info("task created", slog.Int64("task_id", task.ID), slog.Int64("project_id", project.ID))
	return task, nil
}

// UpdateTask applies a patch to a task of a project the requester belongs to.
func (s *Service) UpdateTask(ctx context.Context, requester, id int64, patch TaskPatch) (models.Task, error) {
	task, err := s.authorizeTask(ctx, requester, id)
	if err != nil {
		return models.Task{}, err
	}

	var v apperr.Validation
	title, description, status := task.Title, task.Description, task.Status
	if patch.Title != nil {
		title = strings.TrimSpace(*patch.Title)
		validateTitle(&v, title)
	}
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		status = parseStatus(&v, *patch.Status)
	}
	if err := v.Err(); err != nil {
		return models.Task{}, err
	}

	updated, err := s.store.UpdateTask(ctx, id, title, description, status)
	if err != nil {
		return models.Task{}, err
	}
	if updated.Status != task.Status {
		s.logger.Info("task status changed",
			slog.Int64("task_id", id), slog.String("from", string(task.Status)), slog.String("to", string(updated.Status)))
	}
	return updated, nil
}

// ToggleTask flips a task between created and completed.
func (s *Service) ToggleTask(ctx context.Context, requester, id int64) (models.Task, error) {
	task, err := s.authorizeTask(ctx, requester, id)
	if err != nil {
		return models.Task{}, err
	}
	next := string(task.Status.Toggle())
	return s.UpdateTask(ctx, requester, id, TaskPatch{Status: &next})
}

// DeleteTask removes a task of a project the requester belongs to.
func (s *Service) DeleteTask(ctx context.Context, requester, id int64) error {
	if _, err := s.authorizeTask(ctx, requester, id); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", slog.Int64("task_id", id), slog.Int64("user_id", requester))
	return nil
}

// authorizeTask loads a task and checks the requester may manage it.
func (s *Service) authorizeTask(ctx context.Context, requester, id int64) (models.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil {
		return models.Task{}, err
	}
	if !access.CanManageTasks(project, requester) {
		return models.Task{}, apperr.Forbidden("only the leader and members may change tasks")
	}
	return task, nil
}

func validateTitle(v *apperr.Validation, title string) {
	switch {
	case title == "":
		v.Add("title", "is required")
	case utf8.RuneCountInString(title) > maxNameLength:
		v.Add("title", fmt.Sprintf("may not be greater than %d characters", maxNameLength))
	}
}

func parseStatus(v *apperr.Validation, raw string) models.TaskStatus {
	status := models.TaskStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		v.Add("status", fmt.Sprintf("must be %q or %q", models.StatusCreated, models.StatusCompleted))
	}
	return status
}
