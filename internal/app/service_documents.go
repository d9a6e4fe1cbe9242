package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"atelier/api/internal/rbac"
	"atelier/api/internal/store"
)

func (s *Service) ListProjectDocuments(ctx context.Context, session Session, projectID, milestoneID string) ([]store.Document, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("project not found")
		}
		return nil, err
	}
	if err := s.requireProjectAccess(ctx, session, project); err != nil {
		return nil, err
	}
	docs, err := s.store.ListProjectDocuments(ctx, projectID, milestoneID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []store.Document{}
	}
	return docs, nil
}

type ReviewDocumentInput struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

// ReviewDocument is the client's sign-off on a deliverable. Only the
// project's client may approve, reject, or request a revision.
func (s *Service) ReviewDocument(ctx context.Context, session Session, documentID string, input ReviewDocumentInput) (store.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, notFoundError("document not found")
		}
		return store.Document{}, err
	}

	project, err := s.store.GetProject(ctx, doc.ProjectID)
	if err != nil {
		return store.Document{}, err
	}
	if !s.Can(session.Role, rbac.ActionApproveDocuments) || project.ClientID != session.UserID {
		return store.Document{}, forbiddenError("only the project client can review deliverables")
	}

	switch input.Status {
	case store.DocumentApproved, store.DocumentRejected, store.DocumentRevisionRequested:
	default:
		return store.Document{}, validationError("status must be Approved, Rejected or Revision Requested")
	}
	if doc.Status == store.DocumentApproved {
		return store.Document{}, conflictError("document is already approved", nil)
	}

	var approvedBy string
	var approvedAt *time.Time
	if input.Status == store.DocumentApproved {
		approvedBy = session.UserID
		now := time.Now()
		approvedAt = &now
	}
	if err := s.store.UpdateDocumentStatus(ctx, documentID, input.Status, approvedBy, approvedAt); err != nil {
		return store.Document{}, err
	}

	if input.Feedback != "" {
		if _, err := s.store.InsertDocumentComment(ctx, store.DocumentComment{
			DocumentID: documentID,
			UserID:     session.UserID,
			AuthorName: session.UserName,
			Text:       input.Feedback,
		}); err != nil {
			return store.Document{}, err
		}
	}

	verb := "approved"
	switch input.Status {
	case store.DocumentRejected:
		verb = "rejected"
	case store.DocumentRevisionRequested:
		verb = "requested a revision of"
	}
	s.notifyAdmins(ctx, session.UserID, store.NotifyApprovalRequest,
		fmt.Sprintf("%s %s %q on %s", session.UserName, verb, doc.Name, project.Name),
		store.RelatedRef{Kind: store.RelatedDocument, ID: documentID})

	updated, err := s.store.GetDocument(ctx, documentID)
	if err == nil && s.search != nil {
		s.search.IndexDocument(searchDocumentRecord(updated))
	}
	return updated, err
}
