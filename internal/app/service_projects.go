package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"atelier/api/internal/email"
	"atelier/api/internal/export"
	"atelier/api/internal/rbac"
	"atelier/api/internal/store"
	"atelier/api/internal/util"
)

// defaultMilestones are the standard project phases seeded when the
// caller does not name their own.
var defaultMilestones = []string{
	"Concept Design",
	"Schematic Design",
	"Design Development",
	"Construction Documents",
	"Construction Administration",
}

type CreateProjectInput struct {
	Name        string   `json:"name"`
	ProjectNo   string   `json:"projectNo"`
	Description string   `json:"description"`
	ClientID    string   `json:"clientId"`
	Location    string   `json:"location"`
	Budget      float64  `json:"budget"`
	MemberIDs   []string `json:"members"`
	Milestones  []string `json:"milestones"`
}

// CreateProject creates the project, its milestone list, and the
// project group chat seeded with a system welcome message.
func (s *Service) CreateProject(ctx context.Context, session Session, input CreateProjectInput) (store.Project, error) {
	if !s.Can(session.Role, rbac.ActionManageProjects) {
		return store.Project{}, forbiddenError("only admins can create projects")
	}
	if strings.TrimSpace(input.Name) == "" {
		return store.Project{}, validationError("name is required")
	}
	if strings.TrimSpace(input.ProjectNo) == "" {
		return store.Project{}, validationError("projectNo is required")
	}
	if input.ClientID == "" {
		return store.Project{}, validationError("clientId is required")
	}
	client, err := s.store.GetUserByID(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Project{}, notFoundError("client not found")
		}
		return store.Project{}, err
	}

	names := input.Milestones
	if len(names) == 0 {
		names = defaultMilestones
	}
	milestones := make([]store.Milestone, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		milestones = append(milestones, store.Milestone{
			ID:        util.NewID("ms"),
			Name:      strings.TrimSpace(name),
			Status:    store.MilestonePending,
			IsEnabled: true,
		})
	}
	if len(milestones) == 0 {
		return store.Project{}, validationError("at least one milestone is required")
	}

	members := dedupe(append(input.MemberIDs, session.UserID, input.ClientID))
	memberRecords := make([]store.ProjectMember, 0, len(members))
	for _, id := range members {
		memberRecords = append(memberRecords, store.ProjectMember{UserID: id})
	}

	project, err := s.store.InsertProject(ctx, store.Project{
		Name:        strings.TrimSpace(input.Name),
		ProjectNo:   strings.TrimSpace(input.ProjectNo),
		Description: input.Description,
		ClientID:    input.ClientID,
		Status:      "in_progress",
		Location:    input.Location,
		Budget:      input.Budget,
		Milestones:  milestones,
		Members:     memberRecords,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateProjectNo) {
			return store.Project{}, conflictError("project number already in use", map[string]string{"projectNo": strings.TrimSpace(input.ProjectNo)})
		}
		return store.Project{}, err
	}

	// Project chat with everyone on the job. Failures are logged;
	// the project itself is already created.
	chatMembers := make([]string, 0, len(members))
	for _, id := range members {
		if id != session.UserID {
			chatMembers = append(chatMembers, id)
		}
	}
	chat, err := s.store.CreateGroupChat(ctx, project.Name, session.UserID, project.ID, chatMembers)
	if err != nil {
		log.Printf("create project %s: group chat: %v", project.ID, err)
	} else {
		welcome := fmt.Sprintf("Welcome to %s. This is the project chat for %s.", project.Name, client.DisplayName)
		if _, err := s.postSystemMessage(ctx, chat.ID, session.UserID, welcome); err != nil {
			log.Printf("create project %s: welcome message: %v", project.ID, err)
		}
	}

	s.notify(ctx, []string{input.ClientID}, session.UserID, store.NotifyApprovalRequest,
		fmt.Sprintf("Your project %q has been set up", project.Name),
		store.RelatedRef{Kind: store.RelatedProject, ID: project.ID})

	return project, nil
}

func (s *Service) ListProjects(ctx context.Context, session Session) ([]store.Project, error) {
	projects, err := s.store.ListProjects(ctx, session.UserID, session.Role)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []store.Project{}
	}
	return projects, nil
}

func (s *Service) GetProject(ctx context.Context, session Session, projectID string) (store.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Project{}, notFoundError("project not found")
		}
		return store.Project{}, err
	}
	if err := s.requireProjectAccess(ctx, session, project); err != nil {
		return store.Project{}, err
	}
	return project, nil
}

func (s *Service) requireProjectAccess(ctx context.Context, session Session, project store.Project) error {
	if session.Role == "admin" {
		return nil
	}
	if project.ClientID == session.UserID {
		return nil
	}
	memberIDs, err := s.store.ListProjectMemberIDs(ctx, project.ID)
	if err != nil {
		return err
	}
	for _, id := range memberIDs {
		if id == session.UserID {
			return nil
		}
	}
	return forbiddenError("no access to this project")
}

type AddMilestoneInput struct {
	Name string `json:"name"`
}

func (s *Service) AddMilestone(ctx context.Context, session Session, projectID string, input AddMilestoneInput) (store.Project, error) {
	if !s.Can(session.Role, rbac.ActionManageProjects) {
		return store.Project{}, forbiddenError("only admins can add milestones")
	}
	if strings.TrimSpace(input.Name) == "" {
		return store.Project{}, validationError("name is required")
	}
	project, err := s.store.AddMilestone(ctx, projectID, store.Milestone{
		ID:        util.NewID("ms"),
		Name:      strings.TrimSpace(input.Name),
		Status:    store.MilestonePending,
		IsEnabled: true,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Project{}, notFoundError("project not found")
		}
		return store.Project{}, err
	}
	return project, nil
}

type DeliverableUpload struct {
	Filename string
	Size     int64
	Notes    string
	Body     io.Reader
}

// UploadMilestoneDeliverable is the only operation that completes a
// milestone. It stores the file, registers the document for client
// review, flips the milestone, and recomputes overall progress in the
// same transaction as the flip.
func (s *Service) UploadMilestoneDeliverable(ctx context.Context, session Session, projectID, milestoneID string, upload DeliverableUpload) (store.Document, store.Project, error) {
	if !s.Can(session.Role, rbac.ActionUploadDeliverable) {
		return store.Document{}, store.Project{}, forbiddenError("only admins can upload deliverables")
	}
	if upload.Filename == "" || upload.Body == nil {
		return store.Document{}, store.Project{}, validationError("a deliverable file is required")
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Document{}, store.Project{}, notFoundError("project not found")
		}
		return store.Document{}, store.Project{}, err
	}
	if findMilestone(project.Milestones, milestoneID) == nil {
		return store.Document{}, store.Project{}, notFoundError("milestone not found")
	}

	fileRef, err := s.objects.Upload(ctx, "deliverables/"+projectID, upload.Filename, upload.Body, upload.Size)
	if err != nil {
		return store.Document{}, store.Project{}, upstreamError("file upload failed")
	}

	version, err := s.store.NextDocumentVersion(ctx, projectID, upload.Filename)
	if err != nil {
		return store.Document{}, store.Project{}, err
	}
	document, err := s.store.InsertDocument(ctx, store.Document{
		ProjectID:   projectID,
		MilestoneID: milestoneID,
		Name:        upload.Filename,
		Type:        "deliverable",
		Status:      store.DocumentReview,
		Version:     version,
		Notes:       upload.Notes,
		File:        fileRef,
		UploadedBy:  session.UserID,
	})
	if err != nil {
		return store.Document{}, store.Project{}, err
	}

	project, err = s.store.CompleteMilestone(ctx, projectID, milestoneID)
	if err != nil {
		if errors.Is(err, store.ErrMilestoneNotFound) {
			return store.Document{}, store.Project{}, notFoundError("milestone not found")
		}
		return store.Document{}, store.Project{}, err
	}

	milestone := findMilestone(project.Milestones, milestoneID)
	s.notify(ctx, []string{project.ClientID}, session.UserID, store.NotifyDocumentUploaded,
		fmt.Sprintf("%s deliverable for %q is ready for your review", milestone.Name, project.Name),
		store.RelatedRef{Kind: store.RelatedDocument, ID: document.ID})

	if s.email != nil && s.email.IsConfigured() {
		if client, err := s.store.GetUserByID(ctx, project.ClientID); err == nil {
			if err := s.email.SendDeliverableReadyEmail(client.Email, email.DeliverableReadyData{
				ClientName:    client.DisplayName,
				ProjectName:   project.Name,
				MilestoneName: milestone.Name,
				DocumentName:  document.Name,
			}); err != nil {
				log.Printf("deliverable email for project=%s: %v", project.ID, err)
			}
		}
	}

	if s.search != nil {
		s.search.IndexDocument(searchDocumentRecord(document))
	}
	return document, project, nil
}

// ExportProjectReport renders the progress report PDF. Clients can
// pull reports for their own projects.
func (s *Service) ExportProjectReport(ctx context.Context, session Session, projectID string) (*export.Result, error) {
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
	if s.exporter == nil {
		return nil, upstreamError("report export unavailable")
	}
	result, err := s.exporter.Export(ctx, export.Request{ProjectID: projectID})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, upstreamError("pdf renderer unavailable")
		}
		return nil, err
	}
	return result, nil
}

func findMilestone(milestones []store.Milestone, id string) *store.Milestone {
	for i := range milestones {
		if milestones[i].ID == id {
			return &milestones[i]
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
