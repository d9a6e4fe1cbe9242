package app

import (
	"context"
	"io"
	"time"

	"atelier/api/internal/auth"
	"atelier/api/internal/authpw"
	"atelier/api/internal/config"
	"atelier/api/internal/email"
	"atelier/api/internal/export"
	"atelier/api/internal/rbac"
	"atelier/api/internal/realtime"
	"atelier/api/internal/search"
	"atelier/api/internal/store"
	"atelier/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// dataStore is the persistence surface the service depends on. The
// Postgres store implements it; tests use a hook-style fake.
type dataStore interface {
	Ping(ctx context.Context) error

	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) (store.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]store.User, error)
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)

	FindDirectChat(ctx context.Context, userA, userB, projectID string) (store.Chat, error)
	CreateDirectChat(ctx context.Context, userA, userB, projectID string) (store.Chat, error)
	CreateGroupChat(ctx context.Context, name, adminID, projectID string, memberIDs []string) (store.Chat, error)
	GetChat(ctx context.Context, chatID string) (store.Chat, error)
	ListChats(ctx context.Context, userID, projectID string) ([]store.Chat, error)
	AddChatMember(ctx context.Context, chatID, userID string) error
	IsChatMember(ctx context.Context, chatID, userID string) (bool, error)
	ListChatMemberIDs(ctx context.Context, chatID string) ([]string, error)

	InsertMessage(ctx context.Context, msg store.Message) (store.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]store.Message, error)
	MarkChatRead(ctx context.Context, chatID, userID string) error

	InsertNotification(ctx context.Context, n store.Notification) (store.Notification, error)
	ListNotifications(ctx context.Context, recipientID string) ([]store.Notification, int, error)
	GetNotification(ctx context.Context, notificationID string) (store.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) error
	DeleteNotification(ctx context.Context, notificationID string) error

	InsertProject(ctx context.Context, p store.Project) (store.Project, error)
	GetProject(ctx context.Context, projectID string) (store.Project, error)
	ListProjects(ctx context.Context, viewerID, role string) ([]store.Project, error)
	AddMilestone(ctx context.Context, projectID string, m store.Milestone) (store.Project, error)
	CompleteMilestone(ctx context.Context, projectID, milestoneID string) (store.Project, error)
	ListProjectMemberIDs(ctx context.Context, projectID string) ([]string, error)

	InsertTask(ctx context.Context, t store.Task) (store.Task, error)
	GetTask(ctx context.Context, taskID string) (store.Task, error)
	ListProjectTasks(ctx context.Context, projectID string) ([]store.Task, error)
	ListAssignedTasks(ctx context.Context, userID string) ([]store.Task, error)
	ListMilestoneTasks(ctx context.Context, projectID, milestoneID string) ([]store.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID, status, adminFeedback string) error
	SetTaskSubmission(ctx context.Context, taskID string, sub store.Submission) error

	InsertDocument(ctx context.Context, d store.Document) (store.Document, error)
	GetDocument(ctx context.Context, documentID string) (store.Document, error)
	ListProjectDocuments(ctx context.Context, projectID, milestoneID string) ([]store.Document, error)
	NextDocumentVersion(ctx context.Context, projectID, name string) (int, error)
	UpdateDocumentStatus(ctx context.Context, documentID, status, approvedBy string, approvedAt *time.Time) error
	InsertDocumentComment(ctx context.Context, c store.DocumentComment) (store.DocumentComment, error)
}

// sessionStore holds refresh sessions. Redis in production; the
// Postgres store carries the same methods as a fallback.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// objectStore uploads files and is implemented by storage.MinioStore.
type objectStore interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader, size int64) (store.FileRef, error)
}

// searchIndex is the slice of the search service we use. Indexing is
// fire-and-forget inside the search package.
type searchIndex interface {
	Search(q search.Query) search.Response
	IndexMessage(record search.MessageRecord)
	IndexDocument(record search.DocumentRecord)
	IndexTask(record search.TaskRecord)
}

type mailer interface {
	IsConfigured() bool
	SendDeliverableReadyEmail(to string, data email.DeliverableReadyData) error
	SendTaskReviewedEmail(to string, data email.TaskReviewedData) error
}

type reportExporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	accounts *authpw.Service
	hub      *realtime.Hub
	objects  objectStore
	search   searchIndex
	email    mailer
	exporter reportExporter
}

type Deps struct {
	Sessions sessionStore
	Objects  objectStore
	Search   searchIndex
	Email    mailer
	Exporter reportExporter
}

func New(cfg config.Config, dataStore *store.PostgresStore, hub *realtime.Hub, deps Deps) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: deps.Sessions,
		accounts: authpw.NewService(dataStore),
		hub:      hub,
		objects:  deps.Objects,
		search:   deps.Search,
		email:    deps.Email,
		exporter: deps.Exporter,
	}
}

type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	AvatarURL   string `json:"avatarUrl"`
}

func (s *Service) SignUp(ctx context.Context, input SignUpInput) (Session, error) {
	user, err := s.accounts.SignUp(ctx, authpw.SignUpRequest{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
		Role:        input.Role,
		AvatarURL:   input.AvatarURL,
	})
	if err != nil {
		return Session{}, validationError(err.Error())
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Login(ctx context.Context, loginEmail, password string) (Session, error) {
	user, err := s.accounts.SignIn(ctx, loginEmail, password)
	if err != nil {
		return Session{}, domainError(401, "UNAUTHORIZED", "invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Name:  user.DisplayName,
		Email: user.Email,
		Role:  user.Role,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return Session{}, err
	}
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// ListUsers returns the user directory filtered by role, for
// assignment pickers. Admin only.
func (s *Service) ListUsers(ctx context.Context, session Session, role string) ([]store.User, error) {
	if session.Role != string(rbac.RoleAdmin) {
		return nil, forbiddenError("only admins can list users")
	}
	users, err := s.store.ListUsersByRole(ctx, string(rbac.Normalize(role)))
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
