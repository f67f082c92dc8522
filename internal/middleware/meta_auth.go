package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ValidateMetaSignature validates that the webhook request is from Meta
// by checking the X-Hub-Signature-256 header against the app secret
func ValidateMetaSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Hub-Signature-256")
		if signature == "" {
			return c.Status(401).JSON(fiber.Map{
				"error": "Missing webhook signature",
			})
		}

		appSecret := os.Getenv("WHATSAPP_APP_SECRET")
		if appSecret == "" {
			// Log error but don't expose to client
			fmt.Println("ERROR: WHATSAPP_APP_SECRET not set")
			return c.Status(500).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		expected := calculateMetaSignature(appSecret, c.Body())
		provided := strings.TrimPrefix(signature, "sha256=")

		if !hmac.Equal([]byte(provided), []byte(expected)) {
			return c.Status(401).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}

// calculateMetaSignature computes the hex HMAC-SHA256 of the raw body
func calculateMetaSignature(appSecret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(appSecret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
