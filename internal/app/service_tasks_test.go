package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"atelier/api/internal/store"
)

func (env *testEnv) seedTask(t *testing.T, project store.Project, milestoneID string) store.Task {
	t.Helper()
	task, err := env.service.CreateTask(context.Background(), env.admin, CreateTaskInput{
		Name:        "Draft floor plans",
		ProjectID:   project.ID,
		MilestoneID: milestoneID,
		AssignedTo:  env.member.UserID,
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func TestCreateTaskNotifiesAssignee(t *testing.T) {
	env := newTestEnv()
	project := env.seedProject()

	task := env.seedTask(t, project, "ms_concept")
	if task.Status != store.TaskPending {
		t.Fatalf("new task status = %q", task.Status)
	}

	list, err := env.service.ListNotifications(context.Background(), env.member)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Type != store.NotifyTaskAssigned {
		t.Fatalf("expected one TaskAssigned notification, got %+v", list.Items)
	}
}

func TestCreateTaskRequiresAdmin(t *testing.T) {
	env := newTestEnv()
	project := env.seedProject()

	_, err := env.service.CreateTask(context.Background(), env.member, CreateTaskInput{
		Name:       "Sneaky task",
		ProjectID:  project.ID,
		AssignedTo: env.member.UserID,
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSubmitTaskWithoutFileRejected(t *testing.T) {
	env := newTestEnv()
	project := env.seedProject()
	task := env.seedTask(t, project, "ms_concept")

	_, err := env.service.SubmitTask(context.Background(), env.member, task.ID, SubmitTaskInput{
		Notes: "take my word for it",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if domainErr.Message != "submission requires a document" {
		t.Fatalf("unexpected message: %q", domainErr.Message)
	}
}

func TestSubmitTaskOnlyAssignee(t *testing.T) {
	env := newTestEnv()
	project := env.seedProject()
	task := env.seedTask(t, project, "ms_concept")

	_, err := env.service.SubmitTask(context.Background(), env.client, task.ID, SubmitTaskInput{
		Filename: "plans.pdf",
		Body:     strings.NewReader("pdf"),
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSubmitTaskMovesToWaitingAndNotifiesAdmins(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	project := env.seedProject()
	task := env.seedTask(t, project, "ms_concept")

	updated, err := env.service.SubmitTask(ctx, env.member, task.ID, SubmitTaskInput{
		DocName:  "Floor plans",
		Filename: "plans.pdf",
		Size:     1024,
		Notes:    "first pass",
		Body:     strings.NewReader("pdf bytes"),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if updated.Status != store.TaskWaiting {
		t.Fatalf("status after submit = %q", updated.Status)
	}
	if updated.Submission == nil || updated.Submission.DocName != "Floor plans" {
		t.Fatalf("submission not recorded: %+v", updated.Submission)
	}
	if updated.Submission.File.ObjectID == "" {
		t.Fatal("submission file was not uploaded")
	}

	list, err := env.service.ListNotifications(ctx, env.admin)
	if err != nil {
		t.Fatalf("list admin notifications: %v", err)
	}
	found := false
	for _, n := range list.Items {
		if n.Type == store.NotifyTaskSubmitted {
			found = true
		}
	}
	if !found {
		t.Fatalf("admin was not notified of the submission: %+v", list.Items)
	}
}

func TestReviewTaskApproveCompletes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	project := env.seedProject()
	task := env.seedTask(t, project, "ms_concept")

	if _, err := env.service.SubmitTask(ctx, env.member, task.ID, SubmitTaskInput{
		Filename: "plans.pdf",
		Body:     strings.NewReader("pdf"),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := env.service.ReviewTask(ctx, env.admin, task.ID, ReviewTaskInput{Approve: true})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != store.TaskCompleted {
		t.Fatalf("status after approval = %q", reviewed.Status)
	}

	list, err := env.service.ListNotifications(ctx, env.member)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	found := false
	for _, n := range list.Items {
		if n.Type == store.NotifyTaskReviewed {
			found = true
		}
	}
	if !found {
		t.Fatal("assignee did not get a TaskReviewed notification")
	}
	if len(env.mailer.reviews) != 1 || !env.mailer.reviews[0].Approved {
		t.Fatalf("expected one approval email, got %+v", env.mailer.reviews)
	}
}

func TestReviewTaskRejectReturnsToInProgress(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	project := env.seedProject()
	task := env.seedTask(t, project, "ms_concept")

	if _, err := env.service.SubmitTask(ctx, env.member, task.ID, SubmitTaskInput{
		Filename: "plans.pdf",
		Body:     strings.NewReader("pdf"),
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	reviewed, err := env.service.ReviewTask(ctx, env.admin, task.ID, ReviewTaskInput{
		Approve:  false,
		Feedback: "north elevation is missing",
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != store.TaskInProgress {
		t.Fatalf("status after rejection = %q", reviewed.Status)
	}
	if reviewed.AdminFeedback != "north elevation is missing" {
		t.Fatalf("feedback not recorded: %q", reviewed.AdminFeedback)
	}
}

func TestReviewTaskRequiresWaitingState(t *testing.T) {
	env := newTestEnv()
	project := env.seedProject()
	task := env.seedTask(t, project, "ms_concept")

	_, err := env.service.ReviewTask(context.Background(), env.admin, task.ID, ReviewTaskInput{Approve: true})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "CONFLICT" {
		t.Fatalf("expected conflict for non-waiting task, got %v", err)
	}
}

func TestApprovingLastTaskSignalsMilestoneReadyWithoutCompletingIt(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	project := env.seedProject()

	first := env.seedTask(t, project, "ms_concept")
	second := env.seedTask(t, project, "ms_concept")

	for _, task := range []store.Task{first, second} {
		if _, err := env.service.SubmitTask(ctx, env.member, task.ID, SubmitTaskInput{
			Filename: "work.pdf",
			Body:     strings.NewReader("pdf"),
		}); err != nil {
			t.Fatalf("submit %s: %v", task.ID, err)
		}
	}

	if _, err := env.service.ReviewTask(ctx, env.admin, first.ID, ReviewTaskInput{Approve: true}); err != nil {
		t.Fatalf("review first: %v", err)
	}
	adminList, _ := env.service.ListNotifications(ctx, env.admin)
	for _, n := range adminList.Items {
		if strings.Contains(n.Message, "ready for its deliverable") {
			t.Fatal("milestone signalled ready while a task is still open")
		}
	}

	if _, err := env.service.ReviewTask(ctx, env.admin, second.ID, ReviewTaskInput{Approve: true}); err != nil {
		t.Fatalf("review second: %v", err)
	}
	adminList, _ = env.service.ListNotifications(ctx, env.admin)
	ready := false
	for _, n := range adminList.Items {
		if strings.Contains(n.Message, "ready for its deliverable") {
			ready = true
		}
	}
	if !ready {
		t.Fatal("expected milestone-ready notification after the last approval")
	}

	// Task approvals never flip the milestone; only a deliverable
	// upload does.
	refreshed, err := env.service.GetProject(ctx, env.admin, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	for _, m := range refreshed.Milestones {
		if m.ID == "ms_concept" && m.Status != store.MilestonePending {
			t.Fatalf("milestone status changed by task review: %q", m.Status)
		}
	}
	if refreshed.OverallProgress != 0 {
		t.Fatalf("progress changed by task review: %d", refreshed.OverallProgress)
	}
}

func TestUpdateTaskStatusMapsLegacyStates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	project := env.seedProject()
	task := env.seedTask(t, project, "ms_concept")

	updated, err := env.service.UpdateTaskStatus(ctx, env.member, task.ID, UpdateTaskStatusInput{Status: "Dispute"})
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if updated.Status != store.TaskOnHold {
		t.Fatalf("Dispute should map to On Hold, got %q", updated.Status)
	}

	updated, err = env.service.UpdateTaskStatus(ctx, env.member, task.ID, UpdateTaskStatusInput{Status: "Done"})
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if updated.Status != store.TaskCompleted {
		t.Fatalf("Done should map to Completed, got %q", updated.Status)
	}

	if _, err := env.service.UpdateTaskStatus(ctx, env.member, task.ID, UpdateTaskStatusInput{Status: "Quantum"}); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}

	if _, err := env.service.UpdateTaskStatus(ctx, env.client, task.ID, UpdateTaskStatusInput{Status: "Done"}); err == nil {
		t.Fatal("expected forbidden for non-assignee")
	}
}

func TestMyTasksOnlyAssignees(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	project := env.seedProject()
	env.seedTask(t, project, "ms_concept")

	mine, err := env.service.MyTasks(ctx, env.member)
	if err != nil {
		t.Fatalf("my tasks: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 task for the member, got %d", len(mine))
	}

	none, err := env.service.MyTasks(ctx, env.client)
	if err != nil {
		t.Fatalf("my tasks for client: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("client should have no tasks, got %d", len(none))
	}
}
