package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/tastoria/tastoria-backend/internal/models"
	"github.com/tastoria/tastoria-backend/internal/storage"
)

func seedMenu(t *testing.T, items ...*models.MenuItem) *Menu {
	t.Helper()

	store := storage.NewMemoryStore()
	for _, item := range items {
		if _, err := store.CreateMenuItem(item); err != nil {
			t.Fatalf("seed menu item: %v", err)
		}
	}

	menu, err := NewMenuService(store).GetMenuByCategory()
	if err != nil {
		t.Fatalf("load menu: %v", err)
	}
	return menu
}

func testMenu(t *testing.T) *Menu {
	t.Helper()
	return seedMenu(t,
		&models.MenuItem{Name: "Coffee", Price: 120, Category: "Drinks"},
		&models.MenuItem{Name: "Tea", Price: 50, Category: "Drinks"},
		&models.MenuItem{Name: "Juice", Price: 80, Category: "Drinks"},
		&models.MenuItem{Name: "Lassi", Price: 90, Category: "Drinks"},
		&models.MenuItem{Name: "Samosa", Price: 30, Category: "Snacks"},
		&models.MenuItem{Name: "Fries", Price: 100, Category: "Snacks"},
	)
}

func event(text string) *models.InboundEvent {
	return &models.InboundEvent{
		EventID:    "wamid.test",
		CustomerID: "919876543210",
		Kind:       models.EventText,
		Text:       text,
	}
}

func checkTotalInvariant(t *testing.T, session *models.Session) {
	t.Helper()

	var sum float64
	for _, item := range session.Items {
		sum += float64(item.Quantity) * item.Price
	}
	if session.Total != sum {
		t.Fatalf("total invariant broken: total=%v, sum of lines=%v", session.Total, sum)
	}
}

func TestTableDesignation(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	d := engine.Decide(models.NewSession(), event("table 5"), menu)

	if d.Session.TableID != "5" {
		t.Fatalf("expected tableId 5, got %q", d.Session.TableID)
	}
	if d.Session.Step != models.StepIdle {
		t.Fatalf("expected idle step, got %q", d.Session.Step)
	}
	if len(d.Session.Items) != 0 || d.Session.Total != 0 {
		t.Fatalf("expected empty order, got %d items / total %v", len(d.Session.Items), d.Session.Total)
	}
	if len(d.Intents) != 1 || d.Intents[0].Kind != IntentButtons {
		t.Fatalf("expected one button intent, got %+v", d.Intents)
	}
	if d.Intents[0].Buttons[0] != "Start Order" {
		t.Fatalf("expected Start Order button, got %v", d.Intents[0].Buttons)
	}
}

func TestTableDesignationSupersedesState(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepReview
	session.TableID = "3"
	session.AddItem("Coffee", 2, 120)

	d := engine.Decide(session, event("we moved to table 12"), menu)

	if d.Session.TableID != "12" || d.Session.Step != models.StepIdle {
		t.Fatalf("expected fresh session at table 12, got %+v", d.Session)
	}
	if len(d.Session.Items) != 0 || d.Session.Total != 0 {
		t.Fatal("expected in-progress order to be discarded")
	}
}

func TestResetDeletesSession(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseQty
	session.CurrentItem = "Coffee"

	d := engine.Decide(session, event("reset"), menu)

	if !d.ClearSession {
		t.Fatal("expected ClearSession")
	}
	if len(d.Intents) != 1 || d.Intents[0].Kind != IntentText {
		t.Fatalf("expected one text intent, got %+v", d.Intents)
	}
}

func TestStartShowsCategories(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	d := engine.Decide(models.NewSession(), event("start"), menu)

	if d.Session.Step != models.StepChooseCategory {
		t.Fatalf("expected chooseCategory, got %q", d.Session.Step)
	}
	if d.Session.Page != 0 {
		t.Fatalf("expected page 0, got %d", d.Session.Page)
	}
	if len(d.Intents) != 1 || d.Intents[0].Kind != IntentList {
		t.Fatalf("expected one list intent, got %+v", d.Intents)
	}

	rows := d.Intents[0].Sections[0].Rows
	if len(rows) != 2 || rows[0].Title != "Drinks" || rows[1].Title != "Snacks" {
		t.Fatalf("expected all catalog categories, got %+v", rows)
	}
}

func TestIdleFallbackGreeting(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	d := engine.Decide(models.NewSession(), event("hello there"), menu)

	if d.Session.Step != models.StepIdle {
		t.Fatalf("expected idle, got %q", d.Session.Step)
	}
	if len(d.Intents) != 1 || !strings.Contains(d.Intents[0].Body, "start") {
		t.Fatalf("expected greeting pointing at start, got %+v", d.Intents)
	}
}

func TestCategorySelection(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseCategory

	d := engine.Decide(session, event("DRINKS"), menu)

	if d.Session.Step != models.StepChooseItem {
		t.Fatalf("expected chooseItemFromCategory, got %q", d.Session.Step)
	}
	if d.Session.SelectedCategory != "Drinks" {
		t.Fatalf("expected Drinks, got %q", d.Session.SelectedCategory)
	}

	buttons := d.Intents[0].Buttons
	// 3 items on the first page plus Next, since Drinks has 4 items
	if len(buttons) != 4 || buttons[3] != "Next" {
		t.Fatalf("expected 3 items + Next, got %v", buttons)
	}
	if buttons[0] != "Coffee - ₹120" {
		t.Fatalf("unexpected button title %q", buttons[0])
	}
}

func TestInvalidCategory(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseCategory

	d := engine.Decide(session, event("desserts"), menu)

	if d.Session.Step != models.StepChooseCategory {
		t.Fatalf("expected to stay in chooseCategory, got %q", d.Session.Step)
	}
	if len(d.Intents) != 1 || !strings.Contains(d.Intents[0].Body, "Invalid category") {
		t.Fatalf("expected invalid-category prompt, got %+v", d.Intents)
	}
}

func TestItemSubstringMatch(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseItem
	session.SelectedCategory = "Snacks"

	d := engine.Decide(session, event("I want a SAMOSA please"), menu)

	if d.Session.Step != models.StepChooseQty {
		t.Fatalf("expected chooseQty, got %q", d.Session.Step)
	}
	if d.Session.CurrentItem != "Samosa" {
		t.Fatalf("expected Samosa, got %q", d.Session.CurrentItem)
	}
	if d.Intents[0].Buttons[0] != "1" || len(d.Intents[0].Buttons) != 3 {
		t.Fatalf("expected quick picks 1/2/3, got %v", d.Intents[0].Buttons)
	}
}

func TestInvalidItemSelection(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseItem
	session.SelectedCategory = "Snacks"

	d := engine.Decide(session, event("pizza"), menu)

	if d.Session.Step != models.StepChooseItem {
		t.Fatalf("expected to stay in chooseItemFromCategory, got %q", d.Session.Step)
	}
	// Invalid selection sends the error plus the stuck hint with a Reset button
	if len(d.Intents) != 2 {
		t.Fatalf("expected two intents, got %+v", d.Intents)
	}
	if d.Intents[1].Kind != IntentButtons || d.Intents[1].Buttons[0] != "Reset" {
		t.Fatalf("expected Reset hint, got %+v", d.Intents[1])
	}
}

func TestPaginationNext(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseItem
	session.SelectedCategory = "Drinks"
	session.Page = 0

	d := engine.Decide(session, event("next"), menu)

	if d.Session.Page != 1 {
		t.Fatalf("expected page 1, got %d", d.Session.Page)
	}

	buttons := d.Intents[0].Buttons
	// Drinks has 4 items: the second page holds one item and no Next
	if len(buttons) != 1 || buttons[0] != "Lassi - ₹90" {
		t.Fatalf("expected last page without Next, got %v", buttons)
	}
}

func TestPaginationPageCount(t *testing.T) {
	engine := NewEngine()

	for n := 1; n <= 7; n++ {
		items := make([]*models.MenuItem, n)
		for i := range items {
			items[i] = &models.MenuItem{
				Name:     fmt.Sprintf("Dish %d", i+1),
				Price:    10,
				Category: "Mains",
			}
		}
		menu := seedMenu(t, items...)

		session := models.NewSession()
		session.Step = models.StepChooseCategory

		d := engine.Decide(session, event("mains"), menu)
		pages := 1
		for hasNext(d.Intents[0].Buttons) {
			d = engine.Decide(d.Session, event("next"), menu)
			pages++
		}

		wantPages := (n + PageSize - 1) / PageSize
		if pages != wantPages {
			t.Fatalf("n=%d: expected %d pages, walked %d", n, wantPages, pages)
		}
	}
}

func hasNext(buttons []string) bool {
	return len(buttons) > 0 && buttons[len(buttons)-1] == "Next"
}

func TestQuantityAddsItem(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseQty
	session.CurrentItem = "Coffee"

	d := engine.Decide(session, event("3"), menu)

	if d.Session.Step != models.StepReview {
		t.Fatalf("expected review, got %q", d.Session.Step)
	}
	if len(d.Session.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(d.Session.Items))
	}
	line := d.Session.Items[0]
	if line.Name != "Coffee" || line.Quantity != 3 || line.Price != 120 {
		t.Fatalf("unexpected line %+v", line)
	}
	if d.Session.Total != 360 {
		t.Fatalf("expected total 360, got %v", d.Session.Total)
	}
	checkTotalInvariant(t, d.Session)

	if len(d.Intents) != 2 {
		t.Fatalf("expected added ack + prompt, got %+v", d.Intents)
	}
	if !strings.Contains(d.Intents[0].Body, "Added 3 x Coffee") {
		t.Fatalf("unexpected ack %q", d.Intents[0].Body)
	}
}

func TestQuantityBoundaries(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	for _, input := range []string{"0", "11", "abc", "-1", "2.5"} {
		session := models.NewSession()
		session.Step = models.StepChooseQty
		session.CurrentItem = "Coffee"

		d := engine.Decide(session, event(input), menu)

		if d.Session.Step != models.StepChooseQty {
			t.Fatalf("input %q: expected to stay in chooseQty, got %q", input, d.Session.Step)
		}
		if len(d.Session.Items) != 0 || d.Session.Total != 0 {
			t.Fatalf("input %q: expected untouched order, got %+v", input, d.Session)
		}
		if !strings.Contains(d.Intents[0].Body, "valid quantity") {
			t.Fatalf("input %q: unexpected prompt %q", input, d.Intents[0].Body)
		}
	}
}

func TestQuantityWithVanishedItem(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseQty
	session.CurrentItem = "Discontinued Dish"

	d := engine.Decide(session, event("2"), menu)

	if d.Session.Step != models.StepChooseItem {
		t.Fatalf("expected fallback to chooseItemFromCategory, got %q", d.Session.Step)
	}
	if len(d.Session.Items) != 0 {
		t.Fatal("expected no line added for vanished item")
	}
}

func TestReviewSummaryShownOnce(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepReview
	session.AddItem("Coffee", 2, 120)

	d := engine.Decide(session, event("hmm"), menu)

	if !d.Session.SummaryShown {
		t.Fatal("expected summaryShown after first unmatched text")
	}
	if len(d.Intents) != 2 || !strings.Contains(d.Intents[0].Body, "Order Summary") {
		t.Fatalf("expected summary + prompt, got %+v", d.Intents)
	}
	if !strings.Contains(d.Intents[0].Body, "2 x COFFEE = ₹240") {
		t.Fatalf("unexpected summary %q", d.Intents[0].Body)
	}

	// Second unmatched text is a no-op, no resending
	d = engine.Decide(d.Session, event("hmm again"), menu)
	if len(d.Intents) != 0 {
		t.Fatalf("expected silence, got %+v", d.Intents)
	}
	if d.Session.Step != models.StepReview {
		t.Fatalf("expected to stay in review, got %q", d.Session.Step)
	}
}

func TestReviewAddMore(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepReview
	session.SummaryShown = true
	session.AddItem("Coffee", 1, 120)

	d := engine.Decide(session, event("Add More"), menu)

	if d.Session.Step != models.StepChooseCategory {
		t.Fatalf("expected chooseCategory, got %q", d.Session.Step)
	}
	if d.Session.Page != 0 || d.Session.SummaryShown {
		t.Fatalf("expected page/summary reset, got %+v", d.Session)
	}
	if d.Intents[0].Kind != IntentList {
		t.Fatalf("expected category list, got %+v", d.Intents[0])
	}
	checkTotalInvariant(t, d.Session)
}

func TestReviewConfirmWithoutItems(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepReview

	d := engine.Decide(session, event("confirm"), menu)

	if d.Session.Step != models.StepReview {
		t.Fatalf("expected to stay in review, got %q", d.Session.Step)
	}
	if !strings.Contains(d.Intents[0].Body, "No items yet") {
		t.Fatalf("unexpected prompt %q", d.Intents[0].Body)
	}
}

func TestReviewConfirm(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepReview
	session.AddItem("Coffee", 2, 120)
	session.AddItem("Samosa", 1, 30)

	d := engine.Decide(session, event("Confirm Order"), menu)

	if d.Session.Step != models.StepConfirmPrompt {
		t.Fatalf("expected confirmPrompt, got %q", d.Session.Step)
	}
	if d.Order != nil {
		t.Fatal("order must not be built before the final yes")
	}
	if !strings.Contains(d.Intents[0].Body, "Final Order Summary") {
		t.Fatalf("expected final summary, got %q", d.Intents[0].Body)
	}
	if got := d.Intents[1].Buttons; got[0] != "Yes, Place Order" || got[1] != "Cancel" {
		t.Fatalf("unexpected buttons %v", got)
	}
}

func TestConfirmYesPlacesOrder(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.TableID = "7"
	session.Step = models.StepConfirmPrompt
	session.AddItem("Coffee", 2, 120)
	session.AddItem("Fries", 2, 130)

	d := engine.Decide(session, event("yes, place order"), menu)

	if d.Order == nil {
		t.Fatal("expected an order to finalize")
	}
	if d.Order.Status != models.OrderStatusPending {
		t.Fatalf("expected pending, got %q", d.Order.Status)
	}
	if d.Order.Source != models.OrderSourceWhatsApp {
		t.Fatalf("expected whatsapp source, got %q", d.Order.Source)
	}
	if d.Order.Total != 500 {
		t.Fatalf("expected total 500, got %v", d.Order.Total)
	}
	if d.Order.TableID != "7" || d.Order.PhoneNumber != "919876543210" {
		t.Fatalf("unexpected order %+v", d.Order)
	}
	if len(d.Order.Items) != 2 {
		t.Fatalf("expected 2 order lines, got %d", len(d.Order.Items))
	}

	if d.Session.Step != models.StepIdle {
		t.Fatalf("expected idle after finalize, got %q", d.Session.Step)
	}
	if len(d.Session.Items) != 0 || d.Session.Total != 0 || d.Session.SummaryShown {
		t.Fatalf("expected cleared session, got %+v", d.Session)
	}
	if !strings.Contains(d.Intents[0].Body, "Order Received") {
		t.Fatalf("expected receipt, got %q", d.Intents[0].Body)
	}
}

func TestConfirmCancel(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepConfirmPrompt
	session.AddItem("Coffee", 1, 120)

	d := engine.Decide(session, event("cancel"), menu)

	if d.Order != nil {
		t.Fatal("cancel must not build an order")
	}
	if d.Session.Step != models.StepIdle || len(d.Session.Items) != 0 || d.Session.Total != 0 {
		t.Fatalf("expected cleared idle session, got %+v", d.Session)
	}
}

func TestConfirmUnknownReply(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepConfirmPrompt
	session.AddItem("Coffee", 1, 120)

	d := engine.Decide(session, event("maybe later"), menu)

	if d.Session.Step != models.StepConfirmPrompt {
		t.Fatalf("expected to stay in confirmPrompt, got %q", d.Session.Step)
	}
	if !strings.Contains(d.Intents[0].Body, "Yes") || !strings.Contains(d.Intents[0].Body, "Cancel") {
		t.Fatalf("unexpected prompt %q", d.Intents[0].Body)
	}
	checkTotalInvariant(t, d.Session)
}

func TestTotalInvariantAcrossFlow(t *testing.T) {
	engine := NewEngine()
	menu := testMenu(t)

	session := models.NewSession()
	inputs := []string{"start", "drinks", "coffee", "2", "add more", "snacks", "fries", "10", "confirm"}

	for _, input := range inputs {
		d := engine.Decide(session, event(input), menu)
		session = d.Session
		checkTotalInvariant(t, session)
	}

	if session.Total != 2*120+10*100 {
		t.Fatalf("expected total %v, got %v", 2*120+10*100, session.Total)
	}
}

// A custom matcher can override the default substring policy
type exactMatcher struct{}

func (exactMatcher) Match(text string, items []*models.MenuItem) *models.MenuItem {
	for _, item := range items {
		if strings.EqualFold(text, item.Name) {
			return item
		}
	}
	return nil
}

func TestPluggableMatcher(t *testing.T) {
	engine := NewEngine()
	engine.Matcher = exactMatcher{}
	menu := testMenu(t)

	session := models.NewSession()
	session.Step = models.StepChooseItem
	session.SelectedCategory = "Drinks"

	d := engine.Decide(session, event("a coffee please"), menu)
	if d.Session.Step != models.StepChooseItem {
		t.Fatalf("exact matcher should not match free text, got %q", d.Session.Step)
	}

	d = engine.Decide(d.Session, event("coffee"), menu)
	if d.Session.Step != models.StepChooseQty || d.Session.CurrentItem != "Coffee" {
		t.Fatalf("exact matcher should match the bare name, got %+v", d.Session)
	}
}
