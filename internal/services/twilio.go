package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioService sends WhatsApp messages via Twilio, as an alternative to
// the Meta Cloud API (MESSAGING_PROVIDER=twilio). Twilio's plain message
// API has no interactive buttons or lists, so those render as text.
type TwilioService struct {
	client *twilio.RestClient
	from   string // Format: "whatsapp:+14155238886"
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService() (*TwilioService, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioService{
		client: client,
		from:   from,
	}, nil
}

// SendWhatsAppMessage sends a WhatsApp text message via Twilio
func (t *TwilioService) SendWhatsAppMessage(to string, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return nil
}

// SendText implements Dispatcher
func (t *TwilioService) SendText(ctx context.Context, to, body string) error {
	return t.SendWhatsAppMessage(to, body)
}

// SendButtons implements Dispatcher. Options are appended to the body;
// the customer replies by typing the option text.
func (t *TwilioService) SendButtons(ctx context.Context, to, body string, buttons []string) error {
	var sb strings.Builder
	sb.WriteString(body)
	for _, button := range buttons {
		sb.WriteString("\n▸ ")
		sb.WriteString(button)
	}
	return t.SendWhatsAppMessage(to, sb.String())
}

// SendList implements Dispatcher, flattening sections into text rows
func (t *TwilioService) SendList(ctx context.Context, to, header, body, buttonLabel string, sections []ListSection) error {
	var sb strings.Builder
	if header != "" {
		sb.WriteString("*" + header + "*\n")
	}
	sb.WriteString(body)
	for _, section := range sections {
		for _, row := range section.Rows {
			sb.WriteString("\n▸ ")
			sb.WriteString(row.Title)
		}
	}
	return t.SendWhatsAppMessage(to, sb.String())
}
