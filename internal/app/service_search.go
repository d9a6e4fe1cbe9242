package app

import (
	"context"

	"atelier/api/internal/search"
	"atelier/api/internal/store"
)

// Search runs a full-text query scoped to what the viewer can see:
// admins search everything, everyone else only their projects.
func (s *Service) Search(ctx context.Context, session Session, q search.Query) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	if session.Role != "admin" {
		projects, err := s.store.ListProjects(ctx, session.UserID, session.Role)
		if err != nil {
			return search.Response{}, err
		}
		ids := make([]string, 0, len(projects))
		for _, p := range projects {
			ids = append(ids, p.ID)
		}
		if len(ids) == 0 {
			return search.Response{Results: []search.Result{}, Query: q.Text}, nil
		}
		q.ProjectIDs = ids
	}
	return s.search.Search(q), nil
}

func searchMessageRecord(msg store.Message) search.MessageRecord {
	return search.MessageRecord{
		ID:         msg.ID,
		Content:    msg.Content,
		SenderName: msg.SenderName,
		ChatID:     msg.ChatID,
	}
}

func searchDocumentRecord(d store.Document) search.DocumentRecord {
	return search.DocumentRecord{
		ID:        d.ID,
		Name:      d.Name,
		Notes:     d.Notes,
		ProjectID: d.ProjectID,
		Status:    d.Status,
	}
}

func searchTaskRecord(t store.Task) search.TaskRecord {
	return search.TaskRecord{
		ID:          t.ID,
		Title:       t.Name,
		Description: t.Description,
		ProjectID:   t.ProjectID,
		Status:      t.Status,
	}
}
