package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

// ProjectFields are the scalar attributes written on create and update.
type ProjectFields struct {
	Name        string
	Description string
	Price       float64
	StartDate   *models.Date
	EndDate     *models.Date
}

const projectColumns = `p.id, p.leader_id, p.name, p.description, p.price_cents, p.start_date, p.end_date,
        p.created_at, p.updated_at, u.id, u.name, u.email,
        (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
        (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'completed')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p          models.Project
		priceCents int64
		start, end sql.NullString
	)
	err := row.Scan(&p.ID, &p.LeaderID, &p.Name, &p.Description, &priceCents, &start, &end,
		&p.CreatedAt, &p.UpdatedAt, &p.Leader.ID, &p.Leader.Name, &p.Leader.Email,
		&p.TotalTasks, &p.CompletedTasks)
	if err != nil {
		return models.Project{}, err
	}
	p.Price = float64(priceCents) / 100
	if p.StartDate, err = nullDate(start); err != nil {
		return models.Project{}, err
	}
	if p.EndDate, err = nullDate(end); err != nil {
		return models.Project{}, err
	}
	p.Progress = models.Progress(p.CompletedTasks, p.TotalTasks)
	p.Members = []models.UserSummary{}
	return p, nil
}

func nullDate(v sql.NullString) (*models.Date, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	d, err := models.ParseDate(v.String)
	if err != nil {
		return nil, fmt.Errorf("stored date: %w", err)
	}
	return &d, nil
}

func dateArg(d *models.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func cents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// ListProjectsForUser returns projects led by or shared with userID,
// optionally filtered by a case-insensitive name fragment.
func (s *Store) ListProjectsForUser(ctx context.Context, userID int64, query string) ([]models.Project, error) {
	stmt := `SELECT ` + projectColumns + `
        FROM projects p JOIN users u ON u.id = p.leader_id
        WHERE (p.leader_id = ? OR EXISTS (SELECT 1 FROM project_user pu WHERE pu.project_id = p.id AND pu.user_id = ?))`
	args := []any{userID, userID}
	if q := strings.TrimSpace(query); q != "" {
		stmt += ` AND LOWER(p.name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
	}
	stmt += ` ORDER BY p.created_at ASC, p.id ASC`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Members are loaded after closing the cursor: the pool has one connection.
	rows.Close()

	for i := range projects {
		members, err := listMembers(ctx, s.db, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Members = members
	}
	return projects, nil
}

// GetProject fetches a project with its leader, members and tasks.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := getProject(ctx, s.db, id)
	if err != nil {
		return models.Project{}, err
	}
	tasks, err := s.ListTasks(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	p.Tasks = tasks
	return p, nil
}

func getProject(ctx context.Context, q queryer, id int64) (models.Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+`
        FROM projects p JOIN users u ON u.id = p.leader_id WHERE p.id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, apperr.NotFound("project")
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	members, err := listMembers(ctx, q, id)
	if err != nil {
		return models.Project{}, err
	}
	p.Members = members
	return p, nil
}

func listMembers(ctx context.Context, q queryer, projectID int64) ([]models.UserSummary, error) {
	rows, err := q.QueryContext(ctx, `SELECT u.id, u.name, u.email
        FROM project_user pu JOIN users u ON u.id = pu.user_id
        WHERE pu.project_id = ? ORDER BY pu.created_at ASC, u.id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []models.UserSummary{}
	for rows.Next() {
		var m models.UserSummary
		if err := rows.Scan(&m.ID, &m.Name, &m.Email); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CreateProject persists a project led by leaderID together with its
// initial membership set.
func (s *Store) CreateProject(ctx context.Context, leaderID int64, f ProjectFields, memberIDs []int64) (models.Project, error) {
	if strings.TrimSpace(f.Name) == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO projects(leader_id, name, description, price_cents, start_date, end_date)
            VALUES(?, ?, ?, ?, ?, ?)`,
			leaderID, strings.TrimSpace(f.Name), strings.TrimSpace(f.Description), cents(f.Price), dateArg(f.StartDate), dateArg(f.EndDate))
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("project id: %w", err)
		}
		for _, userID := range uniqueIDs(memberIDs) {
			if err := addMember(ctx, tx, id, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// UpdateProject overwrites the scalar fields and, when memberIDs is not nil,
// reconciles the membership set against it. The leader's membership row is
// never removed.
func (s *Store) UpdateProject(ctx context.Context, id int64, f ProjectFields, memberIDs *[]int64) (models.Project, error) {
	if strings.TrimSpace(f.Name) == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var leaderID int64
		err := tx.QueryRowContext(ctx, `SELECT leader_id FROM projects WHERE id = ?`, id).Scan(&leaderID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("project")
		}
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}

		_, err = tx.ExecContext(ctx, `UPDATE projects SET name = ?, description = ?, price_cents = ?, start_date = ?, end_date = ?,
            updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			strings.TrimSpace(f.Name), strings.TrimSpace(f.Description), cents(f.Price), dateArg(f.StartDate), dateArg(f.EndDate), id)
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}

		if memberIDs == nil {
			return nil
		}
		added, removed, err := reconcileMembers(ctx, tx, id, leaderID, *memberIDs)
		if err != nil {
			return err
		}
		s.logger.Debug("membership reconciled",
			slog.Int64("project_id", id), slog.Int("added", added), slog.Int("removed", removed))
		return nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// reconcileMembers inserts ids missing from the stored set and deletes
// stored rows absent from ids, leaving unchanged rows untouched.
func reconcileMembers(ctx context.Context, tx *sql.Tx, projectID, leaderID int64, ids []int64) (added, removed int, err error) {
	current, err := memberSet(ctx, tx, projectID)
	if err != nil {
		return 0, 0, err
	}

	want := make(map[int64]struct{}, len(ids))
	for _, userID := range uniqueIDs(ids) {
		want[userID] = struct{}{}
		if _, ok := current[userID]; ok {
			continue
		}
		if err := addMember(ctx, tx, projectID, userID); err != nil {
			return 0, 0, err
		}
		added++
	}

	for userID := range current {
		if _, ok := want[userID]; ok || userID == leaderID {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_user WHERE project_id = ? AND user_id = ?`, projectID, userID); err != nil {
			return 0, 0, fmt.Errorf("remove member: %w", err)
		}
		removed++
	}
	return added, removed, nil
}

func memberSet(ctx context.Context, q queryer, projectID int64) (map[int64]struct{}, error) {
	rows, err := q.QueryContext(ctx, `SELECT user_id FROM project_user WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	defer rows.Close()

	set := map[int64]struct{}{}
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		set[userID] = struct{}{}
	}
	return set, rows.Err()
}

func addMember(ctx context.Context, q queryer, projectID, userID int64) error {
	_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO project_user(project_id, user_id) VALUES(?, ?)`, projectID, userID)
	if err != nil {
		return fmt.Errorf("add member %d: %w", userID, err)
	}
	return nil
}

// DeleteProject removes a project along with its tasks and memberships.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		// Also cascades when foreign keys are disabled on the connection.
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM project_user WHERE project_id = ?`, id); err != nil {
			return fmt.Errorf("delete project members: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.NotFound("project")
		}
		return nil
	})
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}
