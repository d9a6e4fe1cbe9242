package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "client read", role: RoleClient, action: ActionRead, allow: true},
		{name: "client message", role: RoleClient, action: ActionMessage, allow: true},
		{name: "client approve documents", role: RoleClient, action: ActionApproveDocuments, allow: true},
		{name: "client review tasks", role: RoleClient, action: ActionReviewTasks, allow: false},
		{name: "team member message", role: RoleTeamMember, action: ActionMessage, allow: true},
		{name: "team member manage projects", role: RoleTeamMember, action: ActionManageProjects, allow: false},
		{name: "admin review tasks", role: RoleAdmin, action: ActionReviewTasks, allow: true},
		{name: "admin upload deliverable", role: RoleAdmin, action: ActionUploadDeliverable, allow: true},
		{name: "unknown role", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Fatal("expected admin to normalize to RoleAdmin")
	}
	if Normalize("") != RoleClient {
		t.Fatal("expected empty role to normalize to RoleClient")
	}
}
