package services

import "context"

// MaxButtons is the provider limit on quick-reply buttons per message
const MaxButtons = 3

// ListRow is one selectable row of a list message
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups list rows under a title
type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// Dispatcher sends outbound messages to the chat provider. Sends are
// best-effort from the conversation's point of view: a failure is
// reported to the caller for logging but never rolls back a session
// transition already decided.
type Dispatcher interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []string) error
	SendList(ctx context.Context, to, header, body, buttonLabel string, sections []ListSection) error
}
