// Package access derives who may view or change a project and its tasks.
package access

import "taskboard/internal/models"

// Capabilities tells a client which controls to offer the requester.
type Capabilities struct {
	IsLeader       bool `json:"is_leader"`
	IsMember       bool `json:"is_member"`
	CanEdit        bool `json:"can_edit"`
	CanDelete      bool `json:"can_delete"`
	CanManageTasks bool `json:"can_manage_tasks"`
}

// Leader reports whether userID leads the project.
func Leader(p models.Project, userID int64) bool {
	return userID != 0 && p.LeaderID == userID
}

// Member reports whether userID is the leader or in the membership set.
func Member(p models.Project, userID int64) bool {
	return Leader(p, userID) || (userID != 0 && p.HasMember(userID))
}

// CanView is granted to the leader and members.
func CanView(p models.Project, userID int64) bool {
	return Member(p, userID)
}

// CanEditProject is leader only: metadata and membership.
func CanEditProject(p models.Project, userID int64) bool {
	return Leader(p, userID)
}

// CanDeleteProject is leader only.
func CanDeleteProject(p models.Project, userID int64) bool {
	return Leader(p, userID)
}

// CanManageTasks covers creating, toggling, editing and deleting tasks.
func CanManageTasks(p models.Project, userID int64) bool {
	return Member(p, userID)
}

// For computes every capability of userID on p.
func For(p models.Project, userID int64) Capabilities {
	return Capabilities{
		IsLeader:       Leader(p, userID),
		IsMember:       Member(p, userID),
		CanEdit:        CanEditProject(p, userID),
		CanDelete:      CanDeleteProject(p, userID),
		CanManageTasks: CanManageTasks(p, userID),
	}
}
