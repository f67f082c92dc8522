package models

// EventKind classifies the inbound message type
type EventKind string

const (
	EventText        EventKind = "text"
	EventButtonReply EventKind = "buttonReply"
	EventListReply   EventKind = "listReply"
)

// InboundEvent is one inbound webhook message, already extracted from the
// provider payload. EventID is the provider message id used for dedup.
type InboundEvent struct {
	EventID    string    `json:"event_id"`
	CustomerID string    `json:"customer_id"`
	Kind       EventKind `json:"kind"`
	Text       string    `json:"text"` // message body or button/list reply title
}
