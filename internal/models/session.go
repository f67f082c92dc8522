package models

// Step is the current node of the ordering conversation
type Step string

const (
	StepIdle           Step = "idle"
	StepChooseCategory Step = "chooseCategory"
	StepChooseItem     Step = "chooseItemFromCategory"
	StepChooseQty      Step = "chooseQty"
	StepReview         Step = "review"
	StepConfirmPrompt  Step = "confirmPrompt"
)

// DefaultTableID is used until the customer announces a table number
const DefaultTableID = "whatsapp"

// SessionItem is one line of the in-progress order
type SessionItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Session stores conversation state for one customer, serialized to JSON
// and kept in Redis under a per-customer key with a 30 minute TTL.
type Session struct {
	Step    Step          `json:"step"`
	TableID string        `json:"tableId"`
	Items   []SessionItem `json:"items"`
	Total   float64       `json:"total"`

	// Transient fields, meaningful only in the steps that set them
	SelectedCategory string `json:"selectedCategory,omitempty"`
	CurrentItem      string `json:"currentItem,omitempty"`
	Page             int    `json:"page,omitempty"`
	SummaryShown     bool   `json:"summaryShown,omitempty"`
}

// NewSession returns a fresh idle session
func NewSession() *Session {
	return &Session{
		Step:    StepIdle,
		TableID: DefaultTableID,
		Items:   []SessionItem{},
	}
}

// AddItem appends a line and keeps the running total in sync
func (s *Session) AddItem(name string, quantity int, unitPrice float64) {
	s.Items = append(s.Items, SessionItem{
		Name:     name,
		Quantity: quantity,
		Price:    unitPrice,
	})
	s.Total += float64(quantity) * unitPrice
}

// ClearOrder drops the in-progress order but keeps the table assignment
func (s *Session) ClearOrder() {
	s.Items = []SessionItem{}
	s.Total = 0
	s.SummaryShown = false
}
