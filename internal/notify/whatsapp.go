// Package notify delivers outbound text messages through the WhatsApp Cloud API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kariyerai/backend/config"
)

const defaultGraphURL = "https://graph.facebook.com/v20.0"

var ErrNotConfigured = errors.New("whatsapp access token or phone number id not set")

// WhatsApp sends text messages from one business phone number.
type WhatsApp struct {
	baseURL string
	token   string
	phoneID string
	http    *http.Client
}

// NewWhatsApp creates a client from cfg.
func NewWhatsApp(cfg config.WhatsAppConfig) *WhatsApp {
	return &WhatsApp{
		baseURL: defaultGraphURL,
		token:   strings.TrimSpace(cfg.AccessToken),
		phoneID: strings.TrimSpace(cfg.PhoneNumberID),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at another Graph API root. Used by tests.
func (w *WhatsApp) WithBaseURL(u string) *WhatsApp {
	w.baseURL = strings.TrimRight(u, "/")
	return w
}

// Configured reports whether credentials are present.
func (w *WhatsApp) Configured() bool {
	return w.token != "" && w.phoneID != ""
}

// SendText sends text to the E.164 number to (with or without the leading +).
func (w *WhatsApp) SendText(ctx context.Context, to, text string) error {
	if !w.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(strings.TrimSpace(to), "+"),
		"type":              "text",
		"text":              map[string]any{"body": text},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp api error: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
