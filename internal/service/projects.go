package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

const (
	maxNameLength = 255
	// maxPrice matches a DECIMAL(12,2) column.
	maxPrice = 9999999999.99
)

// ProjectInput is the payload of a create request. Dates are raw
// YYYY-MM-DD strings so malformed values surface as field errors.
type ProjectInput struct {
	Name        string
	Description string
	Price       *float64
	StartDate   string
	EndDate     string
	Members     []int64
}

// ProjectPatch carries the fields of an update request; nil means keep.
// An empty date string clears the date.
type ProjectPatch struct {
	Name        *string
	Description *string
	Price       *float64
	StartDate   *string
	EndDate     *string
	MemberIDs   *[]int64
}

// FormData lists the users a requester can add as members.
func (s *Service) FormData(ctx context.Context, requester int64) ([]models.UserSummary, error) {
	return s.store.ListUsers(ctx, requester)
}

// ListProjects returns the projects the requester leads or belongs to.
func (s *Service) ListProjects(ctx context.Context, requester int64, query string) ([]ProjectDetail, error) {
	projects, err := s.store.ListProjectsForUser(ctx, requester, query)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectDetail, 0, len(projects))
	for _, p := range projects {
		out = append(out, s.detail(p, requester))
	}
	return out, nil
}

// CreateProject creates a project led by the requester.
func (s *Service) CreateProject(ctx context.Context, requester int64, in ProjectInput) (ProjectDetail, error) {
	var v apperr.Validation

	fields := sqlite.ProjectFields{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	validateName(&v, fields.Name)
	if in.Price != nil {
		fields.Price = validatePrice(&v, *in.Price)
	}
	fields.StartDate = parseOptionalDate(&v, "start_date", in.StartDate)
	fields.EndDate = parseOptionalDate(&v, "end_date", in.EndDate)
	validateDateOrder(&v, fields.StartDate, fields.EndDate)
	if err := s.validateUsers(ctx, &v, "members", in.Members); err != nil {
		return ProjectDetail{}, err
	}
	if err := v.Err(); err != nil {
		return ProjectDetail{}, err
	}

	project, err := s.store.CreateProject(ctx, requester, fields, in.Members)
	if err != nil {
		return ProjectDetail{}, err
	}
	s.logger.Info("project created",
		slog.Int64("project_id", project.ID), slog.Int64("leader_id", requester), slog.Int("members", len(project.Members)))
	return s.detail(project, requester), nil
}

// GetProject returns a project with leader, members and tasks.
func (s *Service) GetProject(ctx context.Context, requester, id int64) (ProjectDetail, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return ProjectDetail{}, err
	}
	if !access.CanView(project, requester) {
		return ProjectDetail{}, apperr.Forbidden("only the leader and members may view this project")
	}
	return s.detail(project, requester), nil
}

// UpdateProject applies a patch; only the leader may do so.
func (s *Service) UpdateProject(ctx context.Context, requester, id int64, patch ProjectPatch) (ProjectDetail, error) {
	current, err := s.store.GetProject(ctx, id)
	if err != nil {
		return ProjectDetail{}, err
	}
	if !access.CanEditProject(current, requester) {
		return ProjectDetail{}, apperr.Forbidden("only the project leader may edit this project")
	}

	var v apperr.Validation
	fields := sqlite.ProjectFields{
		Name:        current.Name,
		Description: current.Description,
		Price:       current.Price,
		StartDate:   current.StartDate,
		EndDate:     current.EndDate,
	}
	if patch.Name != nil {
		fields.Name = strings.TrimSpace(*patch.Name)
		validateName(&v, fields.Name)
	}
	if patch.Description != nil {
		fields.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		fields.Price = validatePrice(&v, *patch.Price)
	}
	if patch.StartDate != nil {
		fields.StartDate = parseOptionalDate(&v, "start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		fields.EndDate = parseOptionalDate(&v, "end_date", *patch.EndDate)
	}
	validateDateOrder(&v, fields.StartDate, fields.EndDate)
	if patch.MemberIDs != nil {
		if err := s.validateUsers(ctx, &v, "member_ids", *patch.MemberIDs); err != nil {
			return ProjectDetail{}, err
		}
	}
	if err := v.Err(); err != nil {
		return ProjectDetail{}, err
	}

	project, err := s.store.UpdateProject(ctx, id, fields, patch.MemberIDs)
	if err != nil {
		return ProjectDetail{}, err
	}
	s.logger.Info("project updated", slog.Int64("project_id", id), slog.Int64("user_id", requester))
	return s.detail(project, requester), nil
}

// DeleteProject removes a project with its tasks and memberships.
func (s *Service) DeleteProject(ctx context.Context, requester, id int64) error {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if !access.CanDeleteProject(project, requester) {
		return apperr.Forbidden("only the project leader may delete this project")
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", slog.Int64("project_id", id), slog.Int("tasks", project.TotalTasks))
	return nil
}

func validateName(v *apperr.Validation, name string) {
	switch {
	case name == "":
		v.Add("name", "is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		v.Add("name", fmt.Sprintf("may not be greater than %d characters", maxNameLength))
	}
}

func validatePrice(v *apperr.Validation, price float64) float64 {
	switch {
	case math.IsNaN(price) || math.IsInf(price, 0):
		v.Add("price", "must be a number")
	case price < 0:
		v.Add("price", "must not be negative")
	case price > maxPrice:
		v.Add("price", "is too large")
	}
	return models.RoundPrice(price)
}

func parseOptionalDate(v *apperr.Validation, field, raw string) *models.Date {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		v.Add(field, "is not a valid date")
		return nil
	}
	return &d
}

func validateDateOrder(v *apperr.Validation, start, end *models.Date) {
	if start == nil || end == nil {
		return
	}
	if end.Before(*start) {
		v.Add("end_date", "must be a date after or equal to start_date")
	}
}

func (s *Service) validateUsers(ctx context.Context, v *apperr.Validation, field string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.store.MissingUsers(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		parts := make([]string, 0, len(missing))
		for _, id := range missing {
			parts = append(parts, fmt.Sprint(id))
		}
		v.Add(field, "unknown user id "+strings.Join(parts, ", "))
	}
	return nil
}
