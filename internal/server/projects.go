package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/service"
)

type createProjectRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Members     []int64  `json:"members" binding:"omitempty,dive,gt=0"`
}

type updateProjectRequest struct {
	Name        *string  `json:"name" binding:"omitempty,max=255"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
	MemberIDs   *[]int64 `json:"member_ids" binding:"omitempty,dive,gt=0"`
}

// handleListProjects returns the projects the requester leads or joined.
func (s *Server) handleListProjects(c *gin.Context) {
	requester, ok := s.requesterID(c)
	if !ok {
		return
	}
	projects, err := s.svc.ListProjects(c.Request.Context(), requester, c.Query("q"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects})
}

// handleProjectFormData lists the users that can be added as members.
func (s *Server) handleProjectFormData(c *gin.Context) {
	requester, ok := s.requesterID(c)
	if !ok {
		return
	}
	users, err := s.svc.FormData(c.Request.Context(), requester)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"users": users})
}

// handleCreateProject creates a project led by the requester.
func (s *Server) handleCreateProject(c *gin.Context) {
	requester, ok := s.requesterID(c)
	if !ok {
		return
	}

	var req createProjectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.svc.CreateProject(c.Request.Context(), requester, service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Members:     req.Members,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project})
}

// handleShowProject returns a project with members and tasks.
func (s *Server) handleShowProject(c *gin.Context) {
	requester, ok := s.requesterID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	project, err := s.svc.GetProject(c.Request.Context(), requester, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleUpdateProject edits metadata and reconciles the member set.
func (s *Server) handleUpdateProject(c *gin.Context) {
	requester, ok := s.requesterID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateProjectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.svc.UpdateProject(c.Request.Context(), requester, id, service.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project})
}

// handleDeleteProject removes a project and all related tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	requester, ok := s.requesterID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.svc.DeleteProject(c.Request.Context(), requester, id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
