package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultGraphAPIURL = "https://graph.facebook.com/v18.0"

// WhatsAppService sends messages through the Meta WhatsApp Cloud API
type WhatsAppService struct {
	httpClient    *http.Client
	token         string
	phoneNumberID string
	baseURL       string
}

// NewWhatsAppService creates a Cloud API client from environment variables
func NewWhatsAppService() (*WhatsAppService, error) {
	token := os.Getenv("WHATSAPP_TOKEN")
	phoneNumberID := os.Getenv("PHONE_NUMBER_ID")

	if token == "" || phoneNumberID == "" {
		return nil, fmt.Errorf("missing WhatsApp credentials in environment variables")
	}

	baseURL := os.Getenv("GRAPH_API_URL")
	if baseURL == "" {
		baseURL = defaultGraphAPIURL
	}

	return &WhatsAppService{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		token:         token,
		phoneNumberID: phoneNumberID,
		baseURL:       baseURL,
	}, nil
}

// Cloud API payload shapes

type waMessage struct {
	MessagingProduct string         `json:"messaging_product"`
	To               string         `json:"to"`
	Type             string         `json:"type,omitempty"`
	Text             *waText        `json:"text,omitempty"`
	Interactive      *waInteractive `json:"interactive,omitempty"`
}

type waText struct {
	Body string `json:"body"`
}

type waInteractive struct {
	Type   string    `json:"type"` // "button" or "list"
	Header *waHeader `json:"header,omitempty"`
	Body   waText    `json:"body"`
	Action waAction  `json:"action"`
}

type waHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type waAction struct {
	Buttons  []waButton    `json:"buttons,omitempty"`
	Button   string        `json:"button,omitempty"`
	Sections []ListSection `json:"sections,omitempty"`
}

type waButton struct {
	Type  string        `json:"type"`
	Reply waButtonReply `json:"reply"`
}

type waButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SendText sends a plain text message
func (w *WhatsAppService) SendText(ctx context.Context, to, body string) error {
	return w.send(ctx, waMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Text:             &waText{Body: body},
	})
}

// SendButtons sends a quick-reply button message. The Cloud API caps
// button messages at 3 replies; larger option sets are sent as a list
// message instead so no option is silently dropped.
func (w *WhatsAppService) SendButtons(ctx context.Context, to, body string, buttons []string) error {
	if len(buttons) == 0 {
		return w.SendText(ctx, to, body)
	}

	if len(buttons) > MaxButtons {
		rows := make([]ListRow, len(buttons))
		for i, title := range buttons {
			rows[i] = ListRow{ID: fmt.Sprintf("btn_%d", i+1), Title: title}
		}
		return w.SendList(ctx, to, "", body, "Choose", []ListSection{{Title: "Options", Rows: rows}})
	}

	waButtons := make([]waButton, len(buttons))
	for i, title := range buttons {
		waButtons[i] = waButton{
			Type:  "reply",
			Reply: waButtonReply{ID: fmt.Sprintf("btn_%d", i+1), Title: title},
		}
	}

	return w.send(ctx, waMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &waInteractive{
			Type:   "button",
			Body:   waText{Body: body},
			Action: waAction{Buttons: waButtons},
		},
	})
}

// SendList sends an interactive list message with categorized rows
func (w *WhatsAppService) SendList(ctx context.Context, to, header, body, buttonLabel string, sections []ListSection) error {
	interactive := &waInteractive{
		Type:   "list",
		Body:   waText{Body: body},
		Action: waAction{Button: buttonLabel, Sections: sections},
	}
	if header != "" {
		interactive.Header = &waHeader{Type: "text", Text: header}
	}

	return w.send(ctx, waMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	})
}

func (w *WhatsAppService) send(ctx context.Context, payload waMessage) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("whatsapp send failed: status %d: %s", resp.StatusCode, detail)
	}

	log.Printf("✅ WhatsApp message sent to %s", payload.To)
	return nil
}
