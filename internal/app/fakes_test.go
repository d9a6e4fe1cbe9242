package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"atelier/api/internal/authpw"
	"atelier/api/internal/config"
	"atelier/api/internal/email"
	"atelier/api/internal/export"
	"atelier/api/internal/realtime"
	"atelier/api/internal/search"
	"atelier/api/internal/store"
)

// fakeStore is an in-memory dataStore. The ...Fn hooks let individual
// tests inject failures without re-implementing the happy path.
type fakeStore struct {
	mu sync.Mutex

	users         map[string]store.User
	emailIndex    map[string]string
	chats         map[string]store.Chat
	chatMembers   map[string][]string
	pairKeys      map[string]string
	messages      map[string][]store.Message
	notifications map[string]store.Notification
	projects      map[string]store.Project
	projectNos    map[string]bool
	tasks         map[string]store.Task
	documents     map[string]store.Document
	comments      []store.DocumentComment
	revokedJTIs   map[string]bool

	seq int

	InsertNotificationFn func(ctx context.Context, n store.Notification) (store.Notification, error)
	ListChatMemberIDsFn  func(ctx context.Context, chatID string) ([]string, error)
	CreateGroupChatFn    func(ctx context.Context, name, adminID, projectID string, memberIDs []string) (store.Chat, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[string]store.User{},
		emailIndex:    map[string]string{},
		chats:         map[string]store.Chat{},
		chatMembers:   map[string][]string{},
		pairKeys:      map[string]string{},
		messages:      map[string][]store.Message{},
		notifications: map[string]store.Notification{},
		projects:      map[string]store.Project{},
		projectNos:    map[string]bool{},
		tasks:         map[string]store.Task{},
		documents:     map[string]store.Document{},
		revokedJTIs:   map[string]bool{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s_%04d", prefix, f.seq)
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) addUser(id, name, role string) store.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := store.User{ID: id, DisplayName: name, Email: id + "@example.com", Role: role, CreatedAt: time.Now()}
	f.users[id] = user
	f.emailIndex[user.Email] = id
	return user
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, addr string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.emailIndex[strings.ToLower(addr)]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return f.users[id], nil
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = f.nextID("usr")
	}
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	f.emailIndex[user.Email] = user.ID
	return user, nil
}

func (f *fakeStore) ListUsersByRole(ctx context.Context, role string) ([]store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.User
	for _, user := range f.users {
		if role == "" || user.Role == role {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokedJTIs[jti] = true
	return nil
}

func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revokedJTIs[jti], nil
}

func pairKey(userA, userB, projectID string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	key := ids[0] + ":" + ids[1]
	if projectID != "" {
		key += ":" + projectID
	}
	return key
}

func (f *fakeStore) FindDirectChat(ctx context.Context, userA, userB, projectID string) (store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chatID, ok := f.pairKeys[pairKey(userA, userB, projectID)]
	if !ok {
		return store.Chat{}, sql.ErrNoRows
	}
	return f.chats[chatID], nil
}

func (f *fakeStore) CreateDirectChat(ctx context.Context, userA, userB, projectID string) (store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(userA, userB, projectID)
	if _, exists := f.pairKeys[key]; exists {
		return store.Chat{}, store.ErrDuplicateChat
	}
	chat := store.Chat{ID: f.nextID("cht"), ProjectID: projectID, CreatedAt: time.Now()}
	f.chats[chat.ID] = chat
	f.chatMembers[chat.ID] = []string{userA, userB}
	f.pairKeys[key] = chat.ID
	return chat, nil
}

func (f *fakeStore) CreateGroupChat(ctx context.Context, name, adminID, projectID string, memberIDs []string) (store.Chat, error) {
	if f.CreateGroupChatFn != nil {
		return f.CreateGroupChatFn(ctx, name, adminID, projectID, memberIDs)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	chat := store.Chat{ID: f.nextID("cht"), IsGroupChat: true, ChatName: name, GroupAdminID: adminID, ProjectID: projectID, CreatedAt: time.Now()}
	f.chats[chat.ID] = chat
	f.chatMembers[chat.ID] = append([]string{adminID}, memberIDs...)
	return chat, nil
}

func (f *fakeStore) GetChat(ctx context.Context, chatID string) (store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[chatID]
	if !ok {
		return store.Chat{}, sql.ErrNoRows
	}
	return chat, nil
}

func (f *fakeStore) ListChats(ctx context.Context, userID, projectID string) ([]store.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Chat
	for chatID, members := range f.chatMembers {
		chat := f.chats[chatID]
		if projectID != "" && chat.ProjectID != projectID {
			continue
		}
		for _, id := range members {
			if id == userID {
				out = append(out, chat)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) AddChatMember(ctx context.Context, chatID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.chatMembers[chatID] {
		if id == userID {
			return nil
		}
	}
	f.chatMembers[chatID] = append(f.chatMembers[chatID], userID)
	return nil
}

func (f *fakeStore) IsChatMember(ctx context.Context, chatID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.chatMembers[chatID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListChatMemberIDs(ctx context.Context, chatID string) ([]string, error) {
	if f.ListChatMemberIDsFn != nil {
		return f.ListChatMemberIDsFn(ctx, chatID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.chatMembers[chatID]...), nil
}

func (f *fakeStore) InsertMessage(ctx context.Context, msg store.Message) (store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = f.nextID("msg")
	msg.CreatedAt = time.Now()
	if sender, ok := f.users[msg.SenderID]; ok {
		msg.SenderName = sender.DisplayName
	}
	if msg.SenderID != "" {
		msg.ReadBy = append(msg.ReadBy, store.ReadReceipt{UserID: msg.SenderID, ReadAt: msg.CreatedAt})
	}
	f.messages[msg.ChatID] = append(f.messages[msg.ChatID], msg)
	return msg, nil
}

func (f *fakeStore) ListMessages(ctx context.Context, chatID string) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Message(nil), f.messages[chatID]...), nil
}

// MarkChatRead records a receipt per message, once per reader, the way
// the ON CONFLICT DO NOTHING insert behaves.
func (f *fakeStore) MarkChatRead(ctx context.Context, chatID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, msg := range f.messages[chatID] {
		already := false
		for _, receipt := range msg.ReadBy {
			if receipt.UserID == userID {
				already = true
				break
			}
		}
		if !already {
			f.messages[chatID][i].ReadBy = append(msg.ReadBy, store.ReadReceipt{UserID: userID, ReadAt: time.Now()})
		}
	}
	return nil
}

func (f *fakeStore) InsertNotification(ctx context.Context, n store.Notification) (store.Notification, error) {
	if f.InsertNotificationFn != nil {
		return f.InsertNotificationFn(ctx, n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = f.nextID("ntf")
	n.CreatedAt = time.Now()
	f.notifications[n.ID] = n
	return n, nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, recipientID string) ([]store.Notification, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Notification
	unread := 0
	for _, n := range f.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		out = append(out, n)
		if !n.IsRead {
			unread++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, unread, nil
}

func (f *fakeStore) GetNotification(ctx context.Context, notificationID string) (store.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[notificationID]
	if !ok {
		return store.Notification{}, sql.ErrNoRows
	}
	return n, nil
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[notificationID]
	if !ok {
		return sql.ErrNoRows
	}
	n.IsRead = true
	f.notifications[notificationID] = n
	return nil
}

func (f *fakeStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, n := range f.notifications {
		if n.RecipientID == recipientID {
			n.IsRead = true
			f.notifications[id] = n
		}
	}
	return nil
}

func (f *fakeStore) DeleteNotification(ctx context.Context, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notifications, notificationID)
	return nil
}

func (f *fakeStore) InsertProject(ctx context.Context, p store.Project) (store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.projectNos[p.ProjectNo] {
		return store.Project{}, store.ErrDuplicateProjectNo
	}
	f.projectNos[p.ProjectNo] = true
	p.ID = f.nextID("prj")
	p.CreatedAt = time.Now()
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetProject(ctx context.Context, projectID string) (store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return store.Project{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) ListProjects(ctx context.Context, viewerID, role string) ([]store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Project
	for _, p := range f.projects {
		if role == "admin" || p.ClientID == viewerID {
			out = append(out, p)
			continue
		}
		for _, m := range p.Members {
			if m.UserID == viewerID {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) AddMilestone(ctx context.Context, projectID string, m store.Milestone) (store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return store.Project{}, sql.ErrNoRows
	}
	p.Milestones = append(p.Milestones, m)
	p.OverallProgress = store.OverallProgress(p.Milestones)
	f.projects[projectID] = p
	return p, nil
}

func (f *fakeStore) CompleteMilestone(ctx context.Context, projectID, milestoneID string) (store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return store.Project{}, sql.ErrNoRows
	}
	found := false
	for i := range p.Milestones {
		if p.Milestones[i].ID == milestoneID {
			p.Milestones[i].Status = store.MilestoneCompleted
			found = true
		}
	}
	if !found {
		return store.Project{}, store.ErrMilestoneNotFound
	}
	p.OverallProgress = store.OverallProgress(p.Milestones)
	f.projects[projectID] = p
	return p, nil
}

func (f *fakeStore) ListProjectMemberIDs(ctx context.Context, projectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (f *fakeStore) InsertTask(ctx context.Context, t store.Task) (store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID("tsk")
	t.CreatedAt = time.Now()
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeStore) GetTask(ctx context.Context, taskID string) (store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	return t, nil
}

func (f *fakeStore) ListProjectTasks(ctx context.Context, projectID string) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListAssignedTasks(ctx context.Context, userID string) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Task
	for _, t := range f.tasks {
		if t.AssignedTo == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) ListMilestoneTasks(ctx context.Context, projectID, milestoneID string) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID && t.MilestoneID == milestoneID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateTaskStatus(ctx context.Context, taskID, status, adminFeedback string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return sql.ErrNoRows
	}
	t.Status = status
	t.AdminFeedback = adminFeedback
	f.tasks[taskID] = t
	return nil
}

func (f *fakeStore) SetTaskSubmission(ctx context.Context, taskID string, sub store.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return sql.ErrNoRows
	}
	t.Submission = &sub
	t.Status = store.TaskWaiting
	f.tasks[taskID] = t
	return nil
}

func (f *fakeStore) InsertDocument(ctx context.Context, d store.Document) (store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = f.nextID("doc")
	d.CreatedAt = time.Now()
	f.documents[d.ID] = d
	return d, nil
}

func (f *fakeStore) GetDocument(ctx context.Context, documentID string) (store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[documentID]
	if !ok {
		return store.Document{}, sql.ErrNoRows
	}
	return d, nil
}

func (f *fakeStore) ListProjectDocuments(ctx context.Context, projectID, milestoneID string) ([]store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Document
	for _, d := range f.documents {
		if d.ProjectID != projectID {
			continue
		}
		if milestoneID != "" && d.MilestoneID != milestoneID {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) NextDocumentVersion(ctx context.Context, projectID, name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	version := 1
	for _, d := range f.documents {
		if d.ProjectID == projectID && d.Name == name && d.Version >= version {
			version = d.Version + 1
		}
	}
	return version, nil
}

func (f *fakeStore) UpdateDocumentStatus(ctx context.Context, documentID, status, approvedBy string, approvedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.documents[documentID]
	if !ok {
		return sql.ErrNoRows
	}
	d.Status = status
	d.ApprovedBy = approvedBy
	d.ApprovedAt = approvedAt
	f.documents[documentID] = d
	return nil
}

func (f *fakeStore) InsertDocumentComment(ctx context.Context, c store.DocumentComment) (store.DocumentComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID("cmt")
	c.CreatedAt = time.Now()
	f.comments = append(f.comments, c)
	return c, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]store.User
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]store.User{}}
}

func (f *fakeSessionStore) SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[tokenHash] = user
	return nil
}

func (f *fakeSessionStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.sessions[tokenHash]
	if !ok {
		return store.User{}, errors.New("session not found")
	}
	return user, nil
}

func (f *fakeSessionStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	uploads []string
	fail    bool
}

func (f *fakeObjectStore) Upload(ctx context.Context, folder, filename string, r io.Reader, size int64) (store.FileRef, error) {
	if f.fail {
		return store.FileRef{}, errors.New("object store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	objectID := folder + "/" + filename
	f.uploads = append(f.uploads, objectID)
	return store.FileRef{ObjectID: objectID, URL: "https://files.example.com/" + objectID, Size: size}, nil
}

type fakeSearch struct {
	mu        sync.Mutex
	messages  []search.MessageRecord
	documents []search.DocumentRecord
	tasks     []search.TaskRecord
	lastQuery search.Query
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (f *fakeSearch) IndexMessage(record search.MessageRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, record)
}

func (f *fakeSearch) IndexDocument(record search.DocumentRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, record)
}

func (f *fakeSearch) IndexTask(record search.TaskRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, record)
}

type fakeMailer struct {
	mu           sync.Mutex
	deliverables []email.DeliverableReadyData
	reviews      []email.TaskReviewedData
}

func (f *fakeMailer) IsConfigured() bool { return true }

func (f *fakeMailer) SendDeliverableReadyEmail(to string, data email.DeliverableReadyData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliverables = append(f.deliverables, data)
	return nil
}

func (f *fakeMailer) SendTaskReviewedEmail(to string, data email.TaskReviewedData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, data)
	return nil
}

type fakeExporter struct{}

func (f *fakeExporter) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	return &export.Result{Data: []byte("%PDF-1.4 fake"), Filename: "report.pdf", MimeType: "application/pdf"}, nil
}

type testEnv struct {
	service  *Service
	store    *fakeStore
	sessions *fakeSessionStore
	objects  *fakeObjectStore
	search   *fakeSearch
	mailer   *fakeMailer
	hub      *realtime.Hub

	admin  Session
	member Session
	client Session
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		CORSOrigin: "*",
	}
}

func newTestEnv() *testEnv {
	fs := newFakeStore()
	sessions := newFakeSessionStore()
	objects := &fakeObjectStore{}
	idx := &fakeSearch{}
	mailer := &fakeMailer{}
	hub := realtime.NewHub()

	svc := &Service{
		cfg:      testConfig(),
		store:    fs,
		sessions: sessions,
		accounts: authpw.NewService(fs),
		hub:      hub,
		objects:  objects,
		search:   idx,
		email:    mailer,
		exporter: &fakeExporter{},
	}

	admin := fs.addUser("usr_admin", "Ada Director", "admin")
	member := fs.addUser("usr_member", "Milo Draftsman", "team_member")
	client := fs.addUser("usr_client", "Cora Owner", "client")

	return &testEnv{
		service:  svc,
		store:    fs,
		sessions: sessions,
		objects:  objects,
		search:   idx,
		mailer:   mailer,
		hub:      hub,
		admin:    sessionFor(admin),
		member:   sessionFor(member),
		client:   sessionFor(client),
	}
}

func sessionFor(user store.User) Session {
	return Session{UserID: user.ID, UserName: user.DisplayName, Email: user.Email, Role: user.Role}
}

// seedProject inserts a project with two enabled milestones and the
// member + client on the roster.
func (env *testEnv) seedProject() store.Project {
	project, _ := env.store.InsertProject(context.Background(), store.Project{
		Name:      "Hillside Residence",
		ProjectNo: "HR-1007",
		ClientID:  env.client.UserID,
		Status:    "in_progress",
		Milestones: []store.Milestone{
			{ID: "ms_concept", Name: "Concept Design", Status: store.MilestonePending, IsEnabled: true},
			{ID: "ms_schematic", Name: "Schematic Design", Status: store.MilestonePending, IsEnabled: true},
		},
		Members: []store.ProjectMember{
			{UserID: env.admin.UserID},
			{UserID: env.member.UserID},
			{UserID: env.client.UserID},
		},
	})
	return project
}
