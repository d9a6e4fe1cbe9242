package store

import "time"

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FileRef is the object-store handle attached to messages, submissions and
// documents. The store trusts the metadata returned by the object store.
type FileRef struct {
	ObjectID string `json:"objectId"`
	URL      string `json:"url"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
}

type Chat struct {
	ID              string
	IsGroupChat     bool
	ChatName        string
	GroupAdminID    string
	ProjectID       string
	LatestMessageID string
	Members         []User
	LatestMessage   *Message
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Message struct {
	ID              string
	ChatID          string
	SenderID        string
	SenderName      string
	SenderAvatarURL string
	Content         string
	Attachments     []FileRef
	ReplyToID       string
	ReplyPreview    string
	IsSystem        bool
	ReadBy          []ReadReceipt
	CreatedAt       time.Time
}

type ReadReceipt struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

// Task lifecycle states.
const (
	TaskPending    = "Pending"
	TaskInProgress = "In Progress"
	TaskWaiting    = "Waiting for Approval"
	TaskCompleted  = "Completed"
	TaskOnHold     = "On Hold"
)

// Milestone states.
const (
	MilestonePending   = "pending"
	MilestoneCompleted = "completed"
)

// Document review states.
const (
	DocumentReview            = "Review"
	DocumentApproved          = "Approved"
	DocumentRejected          = "Rejected"
	DocumentRevisionRequested = "Revision Requested"
)

// Notification types.
const (
	NotifyMessage          = "Message"
	NotifyTaskAssigned     = "TaskAssigned"
	NotifyTaskSubmitted    = "TaskSubmitted"
	NotifyTaskReviewed     = "TaskReviewed"
	NotifyDocumentUploaded = "DocumentUploaded"
	NotifyApprovalRequest  = "ApprovalRequest"
)

// RelatedKind discriminates the polymorphic notification target.
type RelatedKind string

const (
	RelatedTask     RelatedKind = "Task"
	RelatedProject  RelatedKind = "Project"
	RelatedDocument RelatedKind = "Document"
	RelatedFinance  RelatedKind = "Finance"
	RelatedChat     RelatedKind = "Chat"
)

type RelatedRef struct {
	Kind RelatedKind
	ID   string
}

type Notification struct {
	ID          string
	RecipientID string
	SenderID    string
	SenderName  string
	Type        string
	Message     string
	Related     RelatedRef
	IsRead      bool
	CreatedAt   time.Time
}

type Milestone struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	IsEnabled bool   `json:"isEnabled"`
}

type ProjectMember struct {
	UserID      string
	DisplayName string
	Role        string
}

type Project struct {
	ID              string
	ProjectNo       string
	Name            string
	Description     string
	ClientID        string
	Status          string
	Location        string
	Budget          float64
	StartDate       time.Time
	EndDate         time.Time
	Milestones      []Milestone
	OverallProgress int
	Members         []ProjectMember
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Submission is populated once a task reaches Waiting for Approval.
type Submission struct {
	DocName     string    `json:"docName"`
	DocType     string    `json:"docType"`
	Notes       string    `json:"notes"`
	File        FileRef   `json:"file"`
	SubmittedBy string    `json:"submittedBy"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type Task struct {
	ID            string
	ProjectID     string
	MilestoneID   string
	Name          string
	Description   string
	AssignedTo    string
	AssigneeName  string
	Status        string
	Priority      string
	StartDate     *time.Time
	EndDate       *time.Time
	Submission    *Submission
	AdminFeedback string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Document struct {
	ID             string
	ProjectID      string
	MilestoneID    string
	Name           string
	Type           string
	Status         string
	Version        int
	Notes          string
	File           FileRef
	UploadedBy     string
	UploaderName   string
	ApprovedBy     string
	ApprovedAt     *time.Time
	CreatedAt      time.Time
}

type DocumentComment struct {
	ID         string
	DocumentID string
	UserID     string
	AuthorName string
	Text       string
	CreatedAt  time.Time
}
