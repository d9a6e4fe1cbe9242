package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMilestoneNotFound reports a milestone id absent from the project's
// embedded milestone list.
var ErrMilestoneNotFound = errors.New("milestone not found")

// ErrDuplicateProjectNo surfaces the unique index on project_no.
var ErrDuplicateProjectNo = errors.New("project number already in use")

func (s *PostgresStore) InsertProject(ctx context.Context, p Project) (Project, error) {
	milestones, err := json.Marshal(p.Milestones)
	if err != nil {
		return Project{}, fmt.Errorf("marshal milestones: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO projects (project_no, name, description, client_id, status, location, budget, start_date, end_date, milestones)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, p.ProjectNo, p.Name, p.Description, p.ClientID, p.Status, p.Location, p.Budget,
		p.StartDate, p.EndDate, milestones).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Project{}, ErrDuplicateProjectNo
		}
		return Project{}, fmt.Errorf("insert project: %w", err)
	}

	for _, member := range p.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, p.ID, member.UserID, member.Role); err != nil {
			return Project{}, fmt.Errorf("insert project member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Project{}, err
	}
	return s.GetProject(ctx, p.ID)
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `
		SELECT id, project_no, name, description, client_id, status, location, budget,
			start_date, end_date, milestones, overall_progress, created_at, updated_at
		FROM projects WHERE id=$1
	`, projectID))
	if err != nil {
		return Project{}, err
	}
	members, err := s.listProjectMembers(ctx, p.ID)
	if err != nil {
		return Project{}, err
	}
	p.Members = members
	return p, nil
}

// ListProjects applies role-based visibility: clients see their own projects,
// team members the ones they are assigned to, admins everything.
func (s *PostgresStore) ListProjects(ctx context.Context, viewerID, role string) ([]Project, error) {
	query := `
		SELECT id, project_no, name, description, client_id, status, location, budget,
			start_date, end_date, milestones, overall_progress, created_at, updated_at
		FROM projects
	`
	var args []any
	switch role {
	case "client":
		query += ` WHERE client_id=$1`
		args = append(args, viewerID)
	case "team_member":
		query += ` WHERE id IN (SELECT project_id FROM project_members WHERE user_id=$1)`
		args = append(args, viewerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range projects {
		members, err := s.listProjectMembers(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Members = members
	}
	return projects, nil
}

func (s *PostgresStore) AddMilestone(ctx context.Context, projectID string, m Milestone) (Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, err
	}
	defer tx.Rollback()

	milestones, err := lockMilestones(ctx, tx, projectID)
	if err != nil {
		return Project{}, err
	}
	milestones = append(milestones, m)

	if err := saveMilestones(ctx, tx, projectID, milestones); err != nil {
		return Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return Project{}, err
	}
	return s.GetProject(ctx, projectID)
}

// CompleteMilestone flips the milestone to Completed and recomputes the
// project's overall progress from the whole milestone list in one
// SELECT ... FOR UPDATE transaction. The recompute is idempotent: it derives
// the percentage fresh rather than adjusting a counter, so concurrent
// completions converge on the same value.
func (s *PostgresStore) CompleteMilestone(ctx context.Context, projectID, milestoneID string) (Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, err
	}
	defer tx.Rollback()

	milestones, err := lockMilestones(ctx, tx, projectID)
	if err != nil {
		return Project{}, err
	}

	found := false
	for i := range milestones {
		if milestones[i].ID == milestoneID {
			milestones[i].Status = MilestoneCompleted
			found = true
			break
		}
	}
	if !found {
		return Project{}, ErrMilestoneNotFound
	}

	if err := saveMilestones(ctx, tx, projectID, milestones); err != nil {
		return Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return Project{}, err
	}
	return s.GetProject(ctx, projectID)
}

func (s *PostgresStore) ListProjectMemberIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM project_members WHERE project_id=$1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project member ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) listProjectMembers(ctx context.Context, projectID string) ([]ProjectMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pm.user_id, u.display_name, pm.role
		FROM project_members pm JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id=$1
		ORDER BY u.display_name
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	var members []ProjectMember
	for rows.Next() {
		var member ProjectMember
		if err := rows.Scan(&member.UserID, &member.DisplayName, &member.Role); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func lockMilestones(ctx context.Context, tx *sql.Tx, projectID string) ([]Milestone, error) {
	var raw []byte
	err := tx.QueryRowContext(ctx, `SELECT milestones FROM projects WHERE id=$1 FOR UPDATE`, projectID).Scan(&raw)
	if err != nil {
		return nil, err
	}
	var milestones []Milestone
	if err := json.Unmarshal(raw, &milestones); err != nil {
		return nil, fmt.Errorf("unmarshal milestones: %w", err)
	}
	return milestones, nil
}

func saveMilestones(ctx context.Context, tx *sql.Tx, projectID string, milestones []Milestone) error {
	raw, err := json.Marshal(milestones)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE projects SET milestones=$2, overall_progress=$3, updated_at=NOW() WHERE id=$1
	`, projectID, raw, OverallProgress(milestones))
	if err != nil {
		return fmt.Errorf("save milestones: %w", err)
	}
	return nil
}

// OverallProgress is the pure recompute: round(100 * completed / enabled)
// over the milestone list. Disabled milestones are not part of the plan
// and do not count either way.
func OverallProgress(milestones []Milestone) int {
	enabled, completed := 0, 0
	for _, m := range milestones {
		if !m.IsEnabled {
			continue
		}
		enabled++
		if m.Status == MilestoneCompleted {
			completed++
		}
	}
	if enabled == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(enabled)))
}

func scanProject(row rowScanner) (Project, error) {
	var p Project
	var milestones []byte
	err := row.Scan(&p.ID, &p.ProjectNo, &p.Name, &p.Description, &p.ClientID, &p.Status,
		&p.Location, &p.Budget, &p.StartDate, &p.EndDate, &milestones, &p.OverallProgress,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	if err := json.Unmarshal(milestones, &p.Milestones); err != nil {
		return Project{}, fmt.Errorf("unmarshal milestones: %w", err)
	}
	return p, nil
}
