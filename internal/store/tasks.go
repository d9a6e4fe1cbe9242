package store

import (
	"context"
	"encoding/json"
	"fmt"
)

func (s *PostgresStore) InsertTask(ctx context.Context, t Task) (Task, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (project_id, milestone_id, name, description, assigned_to, status, priority, start_date, end_date)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, t.ProjectID, t.MilestoneID, t.Name, t.Description, t.AssignedTo, t.Status, t.Priority,
		t.StartDate, t.EndDate).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	const query = `
		SELECT t.id, t.project_id, t.milestone_id, t.name, t.description,
			COALESCE(t.assigned_to::text, ''), COALESCE(u.display_name, ''),
			t.status, t.priority, t.start_date, t.end_date, t.submission, t.admin_feedback,
			t.created_at, t.updated_at
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_to
		WHERE t.id = $1
	`
	return scanTask(s.db.QueryRowContext(ctx, query, taskID))
}

func (s *PostgresStore) ListProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	const query = `
		SELECT t.id, t.project_id, t.milestone_id, t.name, t.description,
			COALESCE(t.assigned_to::text, ''), COALESCE(u.display_name, ''),
			t.status, t.priority, t.start_date, t.end_date, t.submission, t.admin_feedback,
			t.created_at, t.updated_at
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_to
		WHERE t.project_id = $1
		ORDER BY t.start_date ASC NULLS LAST, t.created_at ASC
	`
	return s.listTasks(ctx, query, projectID)
}

// ListAssignedTasks returns the user's open tasks, urgent deadlines first.
func (s *PostgresStore) ListAssignedTasks(ctx context.Context, userID string) ([]Task, error) {
	const query = `
		SELECT t.id, t.project_id, t.milestone_id, t.name, t.description,
			COALESCE(t.assigned_to::text, ''), COALESCE(u.display_name, ''),
			t.status, t.priority, t.start_date, t.end_date, t.submission, t.admin_feedback,
			t.created_at, t.updated_at
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_to
		WHERE t.assigned_to = $1 AND t.status <> 'Completed'
		ORDER BY t.end_date ASC NULLS LAST
	`
	return s.listTasks(ctx, query, userID)
}

// ListMilestoneTasks fetches every task sharing (project, milestone); the
// milestone-completion check derives its answer fresh from this set.
func (s *PostgresStore) ListMilestoneTasks(ctx context.Context, projectID, milestoneID string) ([]Task, error) {
	const query = `
		SELECT t.id, t.project_id, t.milestone_id, t.name, t.description,
			COALESCE(t.assigned_to::text, ''), COALESCE(u.display_name, ''),
			t.status, t.priority, t.start_date, t.end_date, t.submission, t.admin_feedback,
			t.created_at, t.updated_at
		FROM tasks t
		LEFT JOIN users u ON u.id = t.assigned_to
		WHERE t.project_id = $1 AND t.milestone_id = $2
	`
	return s.listTasks(ctx, query, projectID, milestoneID)
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, taskID, status, adminFeedback string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status=$2, admin_feedback=$3, updated_at=NOW() WHERE id=$1
	`, taskID, status, adminFeedback)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// SetTaskSubmission records the submission payload and moves the task to
// Waiting for Approval in one statement.
func (s *PostgresStore) SetTaskSubmission(ctx context.Context, taskID string, sub Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET submission=$2, status='Waiting for Approval', updated_at=NOW() WHERE id=$1
	`, taskID, raw)
	if err != nil {
		return fmt.Errorf("set task submission: %w", err)
	}
	return nil
}

func (s *PostgresStore) listTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var submission []byte
	err := row.Scan(&t.ID, &t.ProjectID, &t.MilestoneID, &t.Name, &t.Description,
		&t.AssignedTo, &t.AssigneeName, &t.Status, &t.Priority, &t.StartDate, &t.EndDate,
		&submission, &t.AdminFeedback, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	if len(submission) > 0 {
		var sub Submission
		if err := json.Unmarshal(submission, &sub); err != nil {
			return Task{}, fmt.Errorf("unmarshal submission: %w", err)
		}
		t.Submission = &sub
	}
	return t, nil
}
