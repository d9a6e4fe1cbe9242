package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"atelier/api/internal/email"
	"atelier/api/internal/rbac"
	"atelier/api/internal/store"
)

type CreateTaskInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ProjectID   string     `json:"projectId"`
	MilestoneID string     `json:"milestoneId"`
	AssignedTo  string     `json:"assignedTo"`
	Priority    string     `json:"priority"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// CreateTask creates a Pending task and notifies the assignee.
func (s *Service) CreateTask(ctx context.Context, session Session, input CreateTaskInput) (store.Task, error) {
	if !s.Can(session.Role, rbac.ActionManageProjects) {
		return store.Task{}, forbiddenError("only admins can create tasks")
	}
	if strings.TrimSpace(input.Name) == "" {
		return store.Task{}, validationError("name is required")
	}
	if input.ProjectID == "" {
		return store.Task{}, validationError("projectId is required")
	}
	if input.AssignedTo == "" {
		return store.Task{}, validationError("assignedTo is required")
	}

	project, err := s.store.GetProject(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Task{}, notFoundError("project not found")
		}
		return store.Task{}, err
	}
	if input.MilestoneID != "" && findMilestone(project.Milestones, input.MilestoneID) == nil {
		return store.Task{}, notFoundError("milestone not found")
	}
	if _, err := s.store.GetUserByID(ctx, input.AssignedTo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Task{}, notFoundError("assignee not found")
		}
		return store.Task{}, err
	}

	task, err := s.store.InsertTask(ctx, store.Task{
		ProjectID:   input.ProjectID,
		MilestoneID: input.MilestoneID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		AssignedTo:  input.AssignedTo,
		Status:      store.TaskPending,
		Priority:    input.Priority,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	})
	if err != nil {
		return store.Task{}, err
	}

	s.notify(ctx, []string{task.AssignedTo}, session.UserID, store.NotifyTaskAssigned,
		fmt.Sprintf("You have been assigned %q on %s", task.Name, project.Name),
		store.RelatedRef{Kind: store.RelatedTask, ID: task.ID})

	if s.search != nil {
		s.search.IndexTask(searchTaskRecord(task))
	}
	return task, nil
}

func (s *Service) ListProjectTasks(ctx context.Context, session Session, projectID string) ([]store.Task, error) {
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
	tasks, err := s.store.ListProjectTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	return tasks, nil
}

// MyTasks returns the caller's open tasks ordered by deadline.
func (s *Service) MyTasks(ctx context.Context, session Session) ([]store.Task, error) {
	tasks, err := s.store.ListAssignedTasks(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	return tasks, nil
}

type SubmitTaskInput struct {
	DocName  string
	DocType  string
	Notes    string
	Filename string
	Size     int64
	Body     io.Reader
}

// SubmitTask attaches the assignee's work to the task and moves it to
// Waiting for Approval. A document is mandatory.
func (s *Service) SubmitTask(ctx context.Context, session Session, taskID string, input SubmitTaskInput) (store.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return store.Task{}, err
	}
	if task.AssignedTo != session.UserID {
		return store.Task{}, forbiddenError("only the assignee can submit this task")
	}
	if task.Status == store.TaskCompleted {
		return store.Task{}, conflictError("task is already completed", nil)
	}
	if input.Filename == "" || input.Body == nil {
		return store.Task{}, validationError("submission requires a document")
	}

	fileRef, err := s.objects.Upload(ctx, "submissions/"+task.ProjectID, input.Filename, input.Body, input.Size)
	if err != nil {
		return store.Task{}, upstreamError("file upload failed")
	}

	docName := input.DocName
	if docName == "" {
		docName = input.Filename
	}
	if err := s.store.SetTaskSubmission(ctx, taskID, store.Submission{
		DocName:     docName,
		DocType:     input.DocType,
		Notes:       input.Notes,
		File:        fileRef,
		SubmittedBy: session.UserID,
		SubmittedAt: time.Now(),
	}); err != nil {
		return store.Task{}, err
	}

	s.notifyAdmins(ctx, session.UserID, store.NotifyTaskSubmitted,
		fmt.Sprintf("%s submitted %q for approval", session.UserName, task.Name),
		store.RelatedRef{Kind: store.RelatedTask, ID: taskID})

	return s.store.GetTask(ctx, taskID)
}

type ReviewTaskInput struct {
	Approve  bool   `json:"approve"`
	Feedback string `json:"feedback"`
}

// ReviewTask resolves a Waiting for Approval task. Approval completes
// the task and, when every task in the milestone is complete, tells
// the admins the milestone is ready for its deliverable. The
// milestone itself is only completed by a deliverable upload.
func (s *Service) ReviewTask(ctx context.Context, session Session, taskID string, input ReviewTaskInput) (store.Task, error) {
	if !s.Can(session.Role, rbac.ActionReviewTasks) {
		return store.Task{}, forbiddenError("only admins can review tasks")
	}
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return store.Task{}, err
	}
	if task.Status != store.TaskWaiting {
		return store.Task{}, conflictError("task is not waiting for approval", map[string]any{"status": task.Status})
	}

	if input.Approve {
		if err := s.store.UpdateTaskStatus(ctx, taskID, store.TaskCompleted, ""); err != nil {
			return store.Task{}, err
		}
		s.checkMilestoneReady(ctx, task)
	} else {
		if err := s.store.UpdateTaskStatus(ctx, taskID, store.TaskInProgress, input.Feedback); err != nil {
			return store.Task{}, err
		}
	}

	verdict := "approved"
	if !input.Approve {
		verdict = "sent back for changes"
	}
	s.notify(ctx, []string{task.AssignedTo}, session.UserID, store.NotifyTaskReviewed,
		fmt.Sprintf("Your submission for %q was %s", task.Name, verdict),
		store.RelatedRef{Kind: store.RelatedTask, ID: taskID})

	if s.email != nil && s.email.IsConfigured() {
		if assignee, err := s.store.GetUserByID(ctx, task.AssignedTo); err == nil {
			project, _ := s.store.GetProject(ctx, task.ProjectID)
			if err := s.email.SendTaskReviewedEmail(assignee.Email, email.TaskReviewedData{
				UserName:    assignee.DisplayName,
				TaskTitle:   task.Name,
				ProjectName: project.Name,
				Approved:    input.Approve,
				Feedback:    input.Feedback,
			}); err != nil {
				log.Printf("task review email for task=%s: %v", taskID, err)
			}
		}
	}

	updated, err := s.store.GetTask(ctx, taskID)
	if err == nil && s.search != nil {
		s.search.IndexTask(searchTaskRecord(updated))
	}
	return updated, err
}

// checkMilestoneReady looks at the task's milestone after an approval
// and notifies admins when every sibling task is complete. Milestone
// status and progress are untouched here.
func (s *Service) checkMilestoneReady(ctx context.Context, task store.Task) {
	if task.MilestoneID == "" {
		return
	}
	siblings, err := s.store.ListMilestoneTasks(ctx, task.ProjectID, task.MilestoneID)
	if err != nil {
		log.Printf("milestone check for task=%s: %v", task.ID, err)
		return
	}
	for _, sibling := range siblings {
		if sibling.ID != task.ID && sibling.Status != store.TaskCompleted {
			return
		}
	}
	project, err := s.store.GetProject(ctx, task.ProjectID)
	if err != nil {
		log.Printf("milestone check for task=%s: %v", task.ID, err)
		return
	}
	milestone := findMilestone(project.Milestones, task.MilestoneID)
	if milestone == nil {
		return
	}
	s.notifyAdmins(ctx, "", store.NotifyApprovalRequest,
		fmt.Sprintf("All tasks for %s on %q are complete; the milestone is ready for its deliverable", milestone.Name, project.Name),
		store.RelatedRef{Kind: store.RelatedProject, ID: project.ID})
}

type UpdateTaskStatusInput struct {
	Status string `json:"status"`
}

// UpdateTaskStatus is the assignee's low-ceremony path. Dispute maps
// to On Hold; Done maps to Completed without a review round.
func (s *Service) UpdateTaskStatus(ctx context.Context, session Session, taskID string, input UpdateTaskStatusInput) (store.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return store.Task{}, err
	}
	if task.AssignedTo != session.UserID {
		return store.Task{}, forbiddenError("only the assignee can update this task")
	}

	status := input.Status
	switch status {
	case "Dispute":
		status = store.TaskOnHold
	case "Done":
		status = store.TaskCompleted
	}
	switch status {
	case store.TaskPending, store.TaskInProgress, store.TaskCompleted, store.TaskOnHold:
	default:
		return store.Task{}, validationError("unknown task status")
	}

	if err := s.store.UpdateTaskStatus(ctx, taskID, status, ""); err != nil {
		return store.Task{}, err
	}
	if status == store.TaskCompleted {
		s.checkMilestoneReady(ctx, task)
	}
	return s.store.GetTask(ctx, taskID)
}

func (s *Service) getTask(ctx context.Context, taskID string) (store.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Task{}, notFoundError("task not found")
		}
		return store.Task{}, err
	}
	return task, nil
}
