package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultMessage  ResultType = "message"
	ResultDocument ResultType = "document"
	ResultTask     ResultType = "task"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	ProjectID string     `json:"projectId,omitempty"`
	ChatID    string     `json:"chatId,omitempty"`
}

// Query describes a search request. ProjectIDs scopes results to the
// projects the viewer belongs to; empty means no project scoping
// (admin view).
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterProjectID string
	ProjectIDs      []string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexMessage(m MessageRecord) error
	IndexDocument(d DocumentRecord) error
	IndexTask(t TaskRecord) error
	DeleteMessage(id string) error
	DeleteDocument(id string) error
}

// MessageRecord is the data we index for a chat message.
type MessageRecord struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderName string `json:"senderName"`
	ChatID     string `json:"chatId"`
	ProjectID  string `json:"projectId"`
}

// DocumentRecord is the data we index for a project document.
type DocumentRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Notes     string `json:"notes"`
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ProjectID   string `json:"projectId"`
	Status      string `json:"status"`
}
