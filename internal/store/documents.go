package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

func (s *PostgresStore) InsertDocument(ctx context.Context, d Document) (Document, error) {
	file, err := json.Marshal(d.File)
	if err != nil {
		return Document{}, fmt.Errorf("marshal file ref: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO documents (project_id, milestone_id, name, type, status, version, notes, file, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid)
		RETURNING id, created_at
	`, d.ProjectID, d.MilestoneID, d.Name, d.Type, d.Status, d.Version, d.Notes, file, d.UploadedBy).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	const query = `
		SELECT d.id, d.project_id, d.milestone_id, d.name, d.type, d.status, d.version, d.notes,
			d.file, COALESCE(d.uploaded_by::text, ''), COALESCE(u.display_name, ''),
			COALESCE(d.approved_by::text, ''), d.approved_at, d.created_at
		FROM documents d
		LEFT JOIN users u ON u.id = d.uploaded_by
		WHERE d.id = $1
	`
	return scanDocument(s.db.QueryRowContext(ctx, query, documentID))
}

func (s *PostgresStore) ListProjectDocuments(ctx context.Context, projectID, milestoneID string) ([]Document, error) {
	query := `
		SELECT d.id, d.project_id, d.milestone_id, d.name, d.type, d.status, d.version, d.notes,
			d.file, COALESCE(d.uploaded_by::text, ''), COALESCE(u.display_name, ''),
			COALESCE(d.approved_by::text, ''), d.approved_at, d.created_at
		FROM documents d
		LEFT JOIN users u ON u.id = d.uploaded_by
		WHERE d.project_id = $1
	`
	args := []any{projectID}
	if milestoneID != "" {
		query += ` AND d.milestone_id = $2`
		args = append(args, milestoneID)
	}
	query += ` ORDER BY d.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// NextDocumentVersion returns 1 + the highest version of the same-named
// document within the project, or 1 for a first upload.
func (s *PostgresStore) NextDocumentVersion(ctx context.Context, projectID, name string) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(version) FROM documents WHERE project_id=$1 AND name=$2
	`, projectID, name).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("next document version: %w", err)
	}
	return int(version.Int64) + 1, nil
}

func (s *PostgresStore) UpdateDocumentStatus(ctx context.Context, documentID, status, approvedBy string, approvedAt *time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status=$2, approved_by=NULLIF($3, '')::uuid, approved_at=$4 WHERE id=$1
	`, documentID, status, approvedBy, approvedAt)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertDocumentComment(ctx context.Context, c DocumentComment) (DocumentComment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO document_comments (document_id, user_id, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, c.DocumentID, c.UserID, c.Text).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return DocumentComment{}, fmt.Errorf("insert document comment: %w", err)
	}
	return c, nil
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var file []byte
	err := row.Scan(&d.ID, &d.ProjectID, &d.MilestoneID, &d.Name, &d.Type, &d.Status, &d.Version,
		&d.Notes, &file, &d.UploadedBy, &d.UploaderName, &d.ApprovedBy, &d.ApprovedAt, &d.CreatedAt)
	if err != nil {
		return Document{}, err
	}
	if err := json.Unmarshal(file, &d.File); err != nil {
		return Document{}, fmt.Errorf("unmarshal file ref: %w", err)
	}
	return d, nil
}
