package rbac

type Role string
type Action string

const (
	RoleClient     Role = "client"
	RoleTeamMember Role = "team_member"
	RoleAdmin      Role = "admin"
)

const (
	ActionRead              Action = "read"
	ActionMessage           Action = "message"
	ActionManageProjects    Action = "manage-projects"
	ActionReviewTasks       Action = "review-tasks"
	ActionUploadDeliverable Action = "upload-deliverable"
	ActionApproveDocuments  Action = "approve-documents"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleTeamMember:
		return action == ActionRead || action == ActionMessage
	case RoleClient:
		return action == ActionRead || action == ActionMessage || action == ActionApproveDocuments
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleClient, RoleTeamMember, RoleAdmin:
		return Role(role)
	default:
		return RoleClient
	}
}
