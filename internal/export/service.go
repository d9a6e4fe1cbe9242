package export

import (
	"context"
	"fmt"
	"time"

	"atelier/api/internal/store"
)

// DataStore is the slice of the data store the report needs.
type DataStore interface {
	GetProject(ctx context.Context, id string) (store.Project, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	ListProjectTasks(ctx context.Context, projectID string) ([]store.Task, error)
	ListProjectDocuments(ctx context.Context, projectID, milestoneID string) ([]store.Document, error)
}

// Service generates project progress reports.
type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export builds the report for a project and renders it to PDF.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	project, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	data := TemplateData{
		ProjectName:     project.Name,
		Status:          project.Status,
		OverallProgress: project.OverallProgress,
		GeneratedAt:     time.Now(),
	}

	if client, err := s.store.GetUserByID(ctx, project.ClientID); err == nil {
		data.ClientName = client.DisplayName
	}

	for _, m := range project.Milestones {
		if !m.IsEnabled {
			continue
		}
		data.Milestones = append(data.Milestones, TemplateMilestone{
			Name:   m.Name,
			Status: m.Status,
		})
	}

	tasks, err := s.store.ListProjectTasks(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range tasks {
		row := TemplateTask{Title: t.Name, Status: t.Status}
		if t.EndDate != nil {
			row.DueDate = t.EndDate.Format("Jan 2, 2006")
		}
		if assignee, err := s.store.GetUserByID(ctx, t.AssignedTo); err == nil {
			row.Assignee = assignee.DisplayName
		}
		data.Tasks = append(data.Tasks, row)
	}

	documents, err := s.store.ListProjectDocuments(ctx, req.ProjectID, "")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	for _, d := range documents {
		data.Documents = append(data.Documents, TemplateDocument{
			Name:       d.Name,
			Type:       d.Type,
			Status:     d.Status,
			Version:    d.Version,
			UploadedBy: d.UploaderName,
		})
	}

	html, err := RenderReportHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	return exportPDF(html, project.Name+" progress report")
}
