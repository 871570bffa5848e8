package docdex

// Status is the lifecycle state of one indexing operation.
type Status string

// Operation statuses. Complete, failed and cancelled are terminal.
const (
	StatusIndexing  Status = "indexing"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions occur from s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCancelled
}

// StatusRecord is the externally visible progress state of one
// indexing operation. Progress is in [0,1].
type StatusRecord struct {
	ID             string  `json:"id"`
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Status         Status  `json:"status"`
	Progress       float64 `json:"progress"`
	Description    string  `json:"description"`
	PagesFound     int     `json:"pagesFound,omitempty"`
	PagesProcessed int     `json:"pagesProcessed,omitempty"`
	ChunksCreated  int     `json:"chunksCreated,omitempty"`
	ErrorMessage   string  `json:"errorMessage,omitempty"`
}

// StatusStats carries partial counter updates for a running operation.
// Nil fields are left unchanged.
type StatusStats struct {
	PagesFound     *int
	PagesProcessed *int
	ChunksCreated  *int
}

// StatusListener receives a snapshot on status mutations. Listeners are
// invoked synchronously and in order per operation id; a listener must
// not call back into the tracker.
type StatusListener func(StatusRecord)
