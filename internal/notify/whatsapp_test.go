package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/config"
)

func TestSendText(t *testing.T) {
	var got map[string]interface{}
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wa := NewWhatsApp(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "123"}).WithBaseURL(srv.URL)
	require.NoError(t, wa.SendText(context.Background(), "+905551112233", "merhaba"))

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "/123/messages", path)
	assert.Equal(t, "905551112233", got["to"])
	assert.Equal(t, "text", got["type"])
	assert.Equal(t, map[string]interface{}{"body": "merhaba"}, got["text"])
}

func TestSendText_Errors(t *testing.T) {
	err := NewWhatsApp(config.WhatsAppConfig{}).SendText(context.Background(), "1", "x")
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	wa := NewWhatsApp(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "123"}).WithBaseURL(srv.URL)
	err = wa.SendText(context.Background(), "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}
