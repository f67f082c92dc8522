package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tastoria/tastoria-backend/internal/models"
)

// tablePattern detects a table designation like "table 5" anywhere in the text
var tablePattern = regexp.MustCompile(`table\s*(\d+)`)

// IntentKind classifies an outbound message intent
type IntentKind int

const (
	IntentText IntentKind = iota
	IntentButtons
	IntentList
)

// Intent describes one outbound message the conversation wants sent.
// Intents are values, not sends: the webhook handler executes them
// through a Dispatcher after the session transition is decided.
type Intent struct {
	Kind        IntentKind
	Body        string
	Buttons     []string
	Header      string
	ButtonLabel string
	Sections    []ListSection
}

func textIntent(body string) Intent {
	return Intent{Kind: IntentText, Body: body}
}

func buttonIntent(body string, buttons ...string) Intent {
	return Intent{Kind: IntentButtons, Body: body, Buttons: buttons}
}

// Decision is the outcome of one conversation turn
type Decision struct {
	// Session to commit on success; ignored when ClearSession is set
	Session *models.Session

	// Messages to send, in order
	Intents []Intent

	// Non-nil when the customer confirmed: the handler must persist it
	// BEFORE committing Session, and keep the previous session if
	// persistence fails so the order is not silently lost
	Order *models.Order

	// Delete the session key entirely (reset command)
	ClearSession bool
}

// ItemMatcher resolves inbound text to a catalog item
type ItemMatcher interface {
	Match(text string, items []*models.MenuItem) *models.MenuItem
}

// SubstringMatcher matches the first item whose name appears in the text,
// case-insensitive. With ambiguous names the earliest catalog entry wins.
type SubstringMatcher struct{}

func (SubstringMatcher) Match(text string, items []*models.MenuItem) *models.MenuItem {
	lower := strings.ToLower(text)
	for _, item := range items {
		if strings.Contains(lower, strings.ToLower(item.Name)) {
			return item
		}
	}
	return nil
}

// Engine is the conversation state machine. Decide is pure apart from
// mutating the session passed in: no I/O, which keeps every transition
// unit-testable without network calls.
type Engine struct {
	Matcher ItemMatcher
}

// NewEngine creates an engine with the default substring matcher
func NewEngine() *Engine {
	return &Engine{Matcher: SubstringMatcher{}}
}

// Decide consumes one inbound event against the current session and menu
// snapshot and returns the transition to apply
func (e *Engine) Decide(session *models.Session, event *models.InboundEvent, menu *Menu) Decision {
	text := strings.ToLower(strings.TrimSpace(event.Text))

	// A table designation supersedes any state
	if m := tablePattern.FindStringSubmatch(text); m != nil {
		next := models.NewSession()
		next.TableID = m[1]
		return Decision{
			Session: next,
			Intents: []Intent{
				buttonIntent(fmt.Sprintf("✅ Welcome to *Tastoria Table %s*!", m[1]), "Start Order"),
			},
		}
	}

	if strings.Contains(text, "reset") {
		return Decision{
			ClearSession: true,
			Intents: []Intent{
				textIntent("🔄 Session has been reset. Type *start* to begin ordering again."),
			},
		}
	}

	switch session.Step {
	case models.StepChooseCategory:
		return e.decideCategory(session, text, menu)
	case models.StepChooseItem:
		return e.decideItem(session, text, menu)
	case models.StepChooseQty:
		return e.decideQty(session, text, menu)
	case models.StepReview:
		return e.decideReview(session, text, menu)
	case models.StepConfirmPrompt:
		return e.decideConfirm(session, event, text)
	}

	// idle (or an unknown step from an older deploy)
	if strings.Contains(text, "start") {
		session.Step = models.StepChooseCategory
		session.Page = 0
		return Decision{
			Session: session,
			Intents: []Intent{categoryListIntent(menu, "Select a category to explore dishes:")},
		}
	}

	return Decision{
		Session: session,
		Intents: []Intent{textIntent("👋 Hi! Type *start* to begin ordering.")},
	}
}

func (e *Engine) decideCategory(session *models.Session, text string, menu *Menu) Decision {
	category, ok := menu.MatchCategory(text)
	if !ok {
		return Decision{
			Session: session,
			Intents: []Intent{textIntent("❌ Invalid category. Please try again or type *start*.")},
		}
	}

	session.SelectedCategory = category
	session.Step = models.StepChooseItem
	session.Page = 0

	items, more := menu.Page(category, 0)
	return Decision{
		Session: session,
		Intents: []Intent{buttonIntent("📋 *"+category+" Menu*", itemButtons(items, more)...)},
	}
}

func (e *Engine) decideItem(session *models.Session, text string, menu *Menu) Decision {
	if text == "next" {
		session.Page++
		items, more := menu.Page(session.SelectedCategory, session.Page)
		return Decision{
			Session: session,
			Intents: []Intent{buttonIntent("📋 *"+session.SelectedCategory+" Menu*", itemButtons(items, more)...)},
		}
	}

	if item := e.Matcher.Match(text, menu.Items(session.SelectedCategory)); item != nil {
		session.CurrentItem = item.Name
		session.Step = models.StepChooseQty
		return Decision{
			Session: session,
			Intents: []Intent{
				buttonIntent(
					fmt.Sprintf("💵 *%s* costs ₹%s. How many would you like?", item.Name, formatPrice(item.Price)),
					"1", "2", "3",
				),
			},
		}
	}

	return Decision{
		Session: session,
		Intents: []Intent{
			textIntent("❌ Invalid selection. Choose from the menu buttons or tap *Next*."),
			buttonIntent("⚠️ I didn't understand that. If things seem stuck, tap *Reset* to start fresh.", "Reset"),
		},
	}
}

func (e *Engine) decideQty(session *models.Session, text string, menu *Menu) Decision {
	qty, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || qty < 1 || qty > 10 {
		return Decision{
			Session: session,
			Intents: []Intent{textIntent("⚠️ Please enter a valid quantity (1-10).")},
		}
	}

	item := menu.FindItem(session.CurrentItem)
	if item == nil {
		// Item vanished from the catalog mid-conversation
		session.Step = models.StepChooseItem
		session.CurrentItem = ""
		return Decision{
			Session: session,
			Intents: []Intent{textIntent("⚠️ Couldn't find item details. Try again.")},
		}
	}

	session.AddItem(item.Name, qty, item.Price)
	session.CurrentItem = ""
	session.Step = models.StepReview
	session.SummaryShown = false

	return Decision{
		Session: session,
		Intents: []Intent{
			textIntent(fmt.Sprintf("✅ Added %d x %s", qty, item.Name)),
			buttonIntent("Add more or confirm?", "Add More", "Confirm Order"),
		},
	}
}

func (e *Engine) decideReview(session *models.Session, text string, menu *Menu) Decision {
	if strings.Contains(text, "add") {
		session.Step = models.StepChooseCategory
		session.Page = 0
		session.SummaryShown = false
		return Decision{
			Session: session,
			Intents: []Intent{categoryListIntent(menu, "Select a category to add more dishes:")},
		}
	}

	if strings.Contains(text, "confirm") {
		if len(session.Items) == 0 {
			return Decision{
				Session: session,
				Intents: []Intent{textIntent("⚠️ No items yet. Start with *menu* or type item name.")},
			}
		}

		session.Step = models.StepConfirmPrompt
		return Decision{
			Session: session,
			Intents: []Intent{
				textIntent(orderSummary("🧾 *Final Order Summary:*", session)),
				buttonIntent("🛒 Would you like to *place this order*?", "Yes, Place Order", "Cancel"),
			},
		}
	}

	if !session.SummaryShown {
		session.SummaryShown = true
		return Decision{
			Session: session,
			Intents: []Intent{
				textIntent(orderSummary("🧾 *Order Summary:*", session)),
				buttonIntent("Would you like to add more or confirm the order?", "Add More", "Confirm Order"),
			},
		}
	}

	// Summary already shown, stay quiet instead of resending
	return Decision{Session: session}
}

func (e *Engine) decideConfirm(session *models.Session, event *models.InboundEvent, text string) Decision {
	if strings.Contains(text, "yes") {
		items := make([]models.OrderItem, len(session.Items))
		for i, line := range session.Items {
			items[i] = models.OrderItem{
				Name:     line.Name,
				Quantity: line.Quantity,
				Price:    line.Price,
			}
		}

		order := &models.Order{
			TableID:     session.TableID,
			PhoneNumber: event.CustomerID,
			Items:       items,
			Status:      models.OrderStatusPending,
			Source:      models.OrderSourceWhatsApp,
			Total:       session.Total,
		}

		session.Step = models.StepIdle
		session.ClearOrder()

		return Decision{
			Session: session,
			Order:   order,
			Intents: []Intent{
				textIntent("📦 *Order Received!*\nYour order is pending confirmation.\nWe'll notify you once it's confirmed by our staff.\n\n🍽️ *Tastoria Team*"),
			},
		}
	}

	if strings.Contains(text, "cancel") {
		session.Step = models.StepIdle
		session.ClearOrder()
		return Decision{
			Session: session,
			Intents: []Intent{
				textIntent("❌ Order cancelled. You can start again anytime by typing *start*."),
			},
		}
	}

	return Decision{
		Session: session,
		Intents: []Intent{textIntent("❓ Please reply with *Yes* or *Cancel*.")},
	}
}

// itemButtons renders a page of items as button titles, appending Next
// while a further page exists
func itemButtons(items []*models.MenuItem, more bool) []string {
	buttons := make([]string, 0, len(items)+1)
	for _, item := range items {
		buttons = append(buttons, fmt.Sprintf("%s - ₹%s", item.Name, formatPrice(item.Price)))
	}
	if more {
		buttons = append(buttons, "Next")
	}
	return buttons
}

func categoryListIntent(menu *Menu, body string) Intent {
	categories := menu.Categories()
	rows := make([]ListRow, len(categories))
	for i, name := range categories {
		rows[i] = ListRow{
			ID:          fmt.Sprintf("cat_%d", i),
			Title:       name,
			Description: "View items in " + name,
		}
	}

	return Intent{
		Kind:        IntentList,
		Header:      "🍽️ Menu Categories",
		Body:        body,
		ButtonLabel: "View Categories",
		Sections:    []ListSection{{Title: "Categories", Rows: rows}},
	}
}

func orderSummary(header string, session *models.Session) string {
	var sb strings.Builder
	sb.WriteString(header + "\n")
	for _, item := range session.Items {
		sb.WriteString(fmt.Sprintf("- %d x %s = ₹%s\n",
			item.Quantity, strings.ToUpper(item.Name), formatPrice(float64(item.Quantity)*item.Price)))
	}
	sb.WriteString(fmt.Sprintf("\n💰 *Total: ₹%s*", formatPrice(session.Total)))
	return sb.String()
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
