package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

func TestCreateProjectWithMembers(t *testing.T) {
	store, cleanup := newTestStore(t, DriverCGO)
	defer cleanup()
	ctx := context.Background()
	leader, alice, bob := seedUsers(t, store)

	start, _ := models.ParseDate("2025-01-01")
	project, err := store.CreateProject(ctx, leader.ID, ProjectFields{
		Name:      "  Launch  ",
		Price:     1234.567,
		StartDate: &start,
	}, []int64{alice.ID, bob.ID, alice.ID})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project.Name != "Launch" {
		t.Fatalf("expected trimmed name, got %q", project.Name)
	}
	if project.Price != 1234.57 {
		t.Fatalf("expected price rounded to cents, got %v", project.Price)
	}
	if project.Leader.ID != leader.ID || project.Leader.Email != leader.Email {
		t.Fatalf("unexpected leader %+v", project.Leader)
	}
	if got := project.MemberIDs(); len(got) != 2 || got[0] != alice.ID || got[1] != bob.ID {
		t.Fatalf("expected members [%d %d], got %v", alice.ID, bob.ID, got)
	}
	if project.StartDate == nil || project.StartDate.String() != "2025-01-01" {
		t.Fatalf("unexpected start date %v", project.StartDate)
	}
	if project.EndDate != nil {
		t.Fatalf("expected no end date, got %v", project.EndDate)
	}
}

func TestListProjectsForUserCoversLeaderAndMember(t *testing.T) {
	store, cleanup := newTestStore(t, DriverCGO)
	defer cleanup()
	ctx := context.Background()
	leader, alice, bob := seedUsers(t, store)

	if _, err := store.CreateProject(ctx, leader.ID, ProjectFields{Name: "Launch"}, []int64{alice.ID}); err != nil {
		t.Fatalf("create launch: %v", err)
	}
	if _, err := store.CreateProject(ctx, alice.ID, ProjectFields{Name: "Site redesign"}, nil); err != nil {
		t.Fatalf("create redesign: %v", err)
	}

	cases := []struct {
		userID int64
		query  string
		want   int
	}{
		{leader.ID, "", 1},
		{alice.ID, "", 2},
		{bob.ID, "", 0},
		{alice.ID, "LAUN", 1},
		{alice.ID, "%", 0},
	}
	for _, tc := range cases {
		projects, err := store.ListProjectsForUser(ctx, tc.userID, tc.query)
		if err != nil {
			t.Fatalf("list projects: %v", err)
		}
		if len(projects) != tc.want {
			t.Fatalf("user %d query %q: expected %d projects, got %d", tc.userID, tc.query, tc.want, len(projects))
		}
	}
}

func TestUpdateProjectReconcilesMembersAndKeepsLeader(t *testing.T) {
	store, cleanup := newTestStore(t, DriverCGO)
	defer cleanup()
	ctx := context.Background()
	leader, alice, bob := seedUsers(t, store)

	project, err := store.CreateProject(ctx, leader.ID, ProjectFields{Name: "Launch"}, []int64{leader.ID, alice.ID})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	members := []int64{bob.ID}
	updated, err := store.UpdateProject(ctx, project.ID, ProjectFields{Name: "Launch v2", Price: 10}, &members)
	if err != nil {
		t.Fatalf("update project: %v", err)
	}
	if updated.Name != "Launch v2" || updated.Price != 10 {
		t.Fatalf("unexpected fields %+v", updated)
	}
	if updated.HasMember(alice.ID) {
		t.Fatalf("expected alice to be removed")
	}
	if !updated.HasMember(bob.ID) {
		t.Fatalf("expected bob to be added")
	}
	if !updated.HasMember(leader.ID) {
		t.Fatalf("expected leader membership to survive reconciliation")
	}

	unchanged, err := store.UpdateProject(ctx, project.ID, ProjectFields{Name: "Launch v3"}, nil)
	if err != nil {
		t.Fatalf("update without members: %v", err)
	}
	if len(unchanged.Members) != len(updated.Members) {
		t.Fatalf("expected membership to be untouched, got %v", unchanged.MemberIDs())
	}

	if _, err := store.UpdateProject(ctx, 999, ProjectFields{Name: "x"}, nil); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	store, cleanup := newTestStore(t, DriverCGO)
	defer cleanup()
	ctx := context.Background()
	leader, alice, _ := seedUsers(t, store)

	project, err := store.CreateProject(ctx, leader.ID, ProjectFields{Name: "Launch"}, []int64{alice.ID})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	task, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: "Write brief"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := store.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := store.GetTask(ctx, task.ID); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected task to be deleted, got %v", err)
	}
	var memberships int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM project_user WHERE project_id = ?`, project.ID).Scan(&memberships); err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if memberships != 0 {
		t.Fatalf("expected no membership rows, got %d", memberships)
	}
	if err := store.DeleteProject(ctx, project.ID); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected second delete to be not found, got %v", err)
	}
}

func TestTaskCountsAreDerivedFromTasks(t *testing.T) {
	store, cleanup := newTestStore(t, DriverPure)
	defer cleanup()
	ctx := context.Background()
	leader, _, _ := seedUsers(t, store)

	project, err := store.CreateProject(ctx, leader.ID, ProjectFields{Name: "Launch"}, nil)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	first, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: "One", UserID: &leader.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if first.Status != models.StatusCreated {
		t.Fatalf("expected default status created, got %q", first.Status)
	}
	if first.UserID == nil || *first.UserID != leader.ID {
		t.Fatalf("expected assignee %d, got %v", leader.ID, first.UserID)
	}
	if _, err := store.CreateTask(ctx, models.Task{ProjectID: project.ID, Title: "Two"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := store.UpdateTask(ctx, first.ID, first.Title, first.Description, models.StatusCompleted); err != nil {
		t.Fatalf("complete task: %v", err)
	}

	loaded, err := store.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if loaded.TotalTasks != 2 || loaded.CompletedTasks != 1 || loaded.Progress != 50 {
		t.Fatalf("unexpected counts total=%d completed=%d progress=%v", loaded.TotalTasks, loaded.CompletedTasks, loaded.Progress)
	}
	if len(loaded.Tasks) != 2 || loaded.Tasks[0].ID != first.ID {
		t.Fatalf("expected tasks in creation order, got %+v", loaded.Tasks)
	}

	if err := store.DeleteTask(ctx, first.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := store.DeleteTask(ctx, first.ID); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestUsersDirectory(t *testing.T) {
	store, cleanup := newTestStore(t, DriverCGO)
	defer cleanup()
	ctx := context.Background()
	leader, alice, bob := seedUsers(t, store)

	others, err := store.ListUsers(ctx, leader.ID)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(others) != 2 {
		t.Fatalf("expected 2 other users, got %d", len(others))
	}

	missing, err := store.MissingUsers(ctx, []int64{alice.ID, 404, bob.ID, 404})
	if err != nil {
		t.Fatalf("missing users: %v", err)
	}
	if len(missing) != 1 || missing[0] != 404 {
		t.Fatalf("expected [404], got %v", missing)
	}

	if _, err := store.GetUser(ctx, 404); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.CreateUser(ctx, "Dup", alice.Email); err == nil {
		t.Fatalf("expected duplicate email to fail")
	}
}

func TestOpenOnDiskCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "taskboard.db")
	store, err := Open(DriverCGO, path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if _, err := Open("postgres", path, nil); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}
}

func seedUsers(t *testing.T, store *Store) (leader, alice, bob models.User) {
	t.Helper()
	ctx := context.Background()
	var err error
	if leader, err = store.CreateUser(ctx, "Lena Leader", "lena@example.com"); err != nil {
		t.Fatalf("create leader: %v", err)
	}
	if alice, err = store.CreateUser(ctx, "Alice", "alice@example.com"); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if bob, err = store.CreateUser(ctx, "Bob", "bob@example.com"); err != nil {
		t.Fatalf("create bob: %v", err)
	}
	return leader, alice, bob
}

func newTestStore(t *testing.T, driver string) (*Store, func()) {
	t.Helper()
	store, err := Open(driver, ":memory:", nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return store, func() {
		_ = store.Close()
	}
}
