package handlers

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tastoria/tastoria-backend/internal/models"
	"github.com/tastoria/tastoria-backend/internal/services"
	"github.com/tastoria/tastoria-backend/internal/storage"
)

// How long one webhook delivery may spend on stores and sends
const requestTimeout = 15 * time.Second

// How often order persistence is retried before the session is left in
// confirmPrompt for the customer to try again
const orderPersistAttempts = 3

// WhatsAppHandler processes inbound WhatsApp webhook events
type WhatsAppHandler struct {
	sessions   storage.SessionStore
	dedup      storage.DedupGuard
	menu       *services.MenuService
	engine     *services.Engine
	dispatcher services.Dispatcher
	orders     *services.OrderService
}

// NewWhatsAppHandler creates a new WhatsApp webhook handler
func NewWhatsAppHandler(
	sessions storage.SessionStore,
	dedup storage.DedupGuard,
	menu *services.MenuService,
	dispatcher services.Dispatcher,
	orders *services.OrderService,
) *WhatsAppHandler {
	return &WhatsAppHandler{
		sessions:   sessions,
		dedup:      dedup,
		menu:       menu,
		engine:     services.NewEngine(),
		dispatcher: dispatcher,
		orders:     orders,
	}
}

// HandleVerification answers the provider's webhook verification
// handshake by echoing the challenge when the shared secret matches
func (h *WhatsAppHandler) HandleVerification(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	verifyToken := os.Getenv("WHATSAPP_VERIFY_TOKEN")
	if mode == "subscribe" && verifyToken != "" && token == verifyToken {
		return c.SendString(challenge)
	}
	return c.SendStatus(fiber.StatusForbidden)
}

// HandleWebhook processes an inbound webhook delivery. Payloads without
// an actual message (status updates, delivery notifications) and
// duplicate deliveries are acknowledged with 200 and ignored; only a
// session store outage produces a retryable 503.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload metaWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	event := extractEvent(&payload)
	if event == nil {
		log.Println("📭 No message in payload. Ignored.")
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📥 %s: %s", event.CustomerID, event.Text)

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	first, err := h.dedup.MarkSeen(ctx, event.EventID)
	if err != nil {
		log.Printf("❌ Dedup check failed for %s: %v", event.EventID, err)
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}
	if !first {
		log.Printf("🛑 Duplicate message skipped: %s", event.EventID)
		return c.SendStatus(fiber.StatusOK)
	}

	if err := h.processEvent(ctx, event); err != nil {
		if errors.Is(err, storage.ErrSessionStoreUnavailable) {
			// Retryable: release the dedup reservation so the provider's
			// redelivery is processed instead of suppressed as a duplicate
			if unmarkErr := h.dedup.Unmark(ctx, event.EventID); unmarkErr != nil {
				log.Printf("⚠️ Failed to release dedup mark for %s: %v", event.EventID, unmarkErr)
			}
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
		log.Printf("❌ Webhook error: %v", err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// processEvent runs one conversation turn: load session, decide, persist
// the order first if one was confirmed, commit the session, send replies
func (h *WhatsAppHandler) processEvent(ctx context.Context, event *models.InboundEvent) error {
	session, err := h.sessions.Get(ctx, event.CustomerID)
	if err != nil {
		return err
	}
	if session == nil {
		session = models.NewSession()
	}

	// Kept for the persistence-failure path below
	prev := *session

	menu, err := h.menu.GetMenuByCategory()
	if err != nil {
		log.Printf("❌ Failed to load menu: %v", err)
		h.sendText(ctx, event.CustomerID, "❌ Sorry, something went wrong. Please try again.")
		return nil
	}

	decision := h.engine.Decide(session, event, menu)

	if decision.Order != nil {
		if err := h.placeWithRetry(ctx, decision.Order); err != nil {
			// Do not commit the cleared session: the customer stays in
			// confirmPrompt and can reply Yes again
			log.Printf("❌ Order persistence failed for %s: %v", event.CustomerID, err)
			if err := h.sessions.Set(ctx, event.CustomerID, &prev, storage.SessionTTL); err != nil {
				return err
			}
			h.sendText(ctx, event.CustomerID, "⚠️ We couldn't place your order right now. Please reply *Yes* to try again.")
			return nil
		}
	}

	if decision.ClearSession {
		if err := h.sessions.Delete(ctx, event.CustomerID); err != nil {
			return err
		}
	} else {
		if err := h.sessions.Set(ctx, event.CustomerID, decision.Session, storage.SessionTTL); err != nil {
			return err
		}
	}

	// Session is committed; sends are best-effort from here
	for _, intent := range decision.Intents {
		h.send(ctx, event.CustomerID, intent)
	}
	return nil
}

func (h *WhatsAppHandler) placeWithRetry(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 1; attempt <= orderPersistAttempts; attempt++ {
		if _, err = h.orders.Place(ctx, order); err == nil {
			return nil
		}
		log.Printf("⚠️ Order persist attempt %d/%d failed: %v", attempt, orderPersistAttempts, err)
		time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
	}
	return err
}

func (h *WhatsAppHandler) send(ctx context.Context, to string, intent services.Intent) {
	var err error
	switch intent.Kind {
	case services.IntentButtons:
		err = h.dispatcher.SendButtons(ctx, to, intent.Body, intent.Buttons)
	case services.IntentList:
		err = h.dispatcher.SendList(ctx, to, intent.Header, intent.Body, intent.ButtonLabel, intent.Sections)
	default:
		err = h.dispatcher.SendText(ctx, to, intent.Body)
	}
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp response to %s: %v", to, err)
	}
}

func (h *WhatsAppHandler) sendText(ctx context.Context, to, body string) {
	if err := h.dispatcher.SendText(ctx, to, body); err != nil {
		log.Printf("❌ Failed to send WhatsApp response to %s: %v", to, err)
	}
}

// metaWebhookPayload mirrors the nested Cloud API webhook shape; every
// level is optional in practice
type metaWebhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []metaMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type metaMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string                `json:"type"`
		ButtonReply *metaInteractiveReply `json:"button_reply"`
		ListReply   *metaInteractiveReply `json:"list_reply"`
	} `json:"interactive"`
}

type metaInteractiveReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// extractEvent pulls the first message out of the nested payload, or nil
// when the delivery carries no processable message
func extractEvent(payload *metaWebhookPayload) *models.InboundEvent {
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return nil
	}
	messages := payload.Entry[0].Changes[0].Value.Messages
	if len(messages) == 0 {
		return nil
	}

	msg := messages[0]
	event := &models.InboundEvent{
		EventID:    msg.ID,
		CustomerID: msg.From,
		Kind:       models.EventText,
	}

	switch {
	case msg.Text != nil && msg.Text.Body != "":
		event.Text = msg.Text.Body
	case msg.Interactive != nil && msg.Interactive.ButtonReply != nil:
		event.Kind = models.EventButtonReply
		event.Text = msg.Interactive.ButtonReply.Title
	case msg.Interactive != nil && msg.Interactive.ListReply != nil:
		event.Kind = models.EventListReply
		event.Text = msg.Interactive.ListReply.Title
	}

	if event.Text == "" || event.CustomerID == "" {
		return nil
	}
	return event
}

// testWebhookPayload drives the same pipeline from a plain JSON body,
// for local development without the provider
type testWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook processes test messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload testWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}
	if payload.From == "" || payload.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from and message are required",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)

	event := &models.InboundEvent{
		EventID:    uuid.NewString(),
		CustomerID: payload.From,
		Kind:       models.EventText,
		Text:       payload.Message,
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	if err := h.processEvent(ctx, event); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"success": true})
}
