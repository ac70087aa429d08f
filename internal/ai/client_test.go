package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/config"
	"github.com/kariyerai/backend/internal/models"
)

func fakeOpenAI(t *testing.T, status int, text string, captured *responsesRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{{
				"type": "message", "role": "assistant",
				"content": []map[string]any{{"type": "output_text", "text": text}},
			}},
			"usage": map[string]int{"input_tokens": 40, "output_tokens": 250},
		})
	}))
}

func newTestClient(url string) *Client {
	return New(config.AIConfig{APIKey: "sk-test", BaseURL: url, Model: "test-model", TimeoutSeconds: 5})
}

func TestScoreMatch(t *testing.T) {
	var got responsesRequest
	srv := fakeOpenAI(t, http.StatusOK, "```json\n{\"score\":140,\"feedback\":\"strong\",\"strengths\":[\"go\"]}\n```", &got)
	defer srv.Close()

	score, err := newTestClient(srv.URL).ScoreMatch(context.Background(), json.RawMessage(`{"skills":["go"]}`),
		&models.JobListing{Title: "Backend Engineer", Company: "Acme", Description: "Build APIs"})
	require.NoError(t, err)
	assert.Equal(t, 100, score.Score)
	assert.Equal(t, []string{"go"}, score.Strengths)
	assert.Equal(t, []string{}, score.Gaps)
	assert.Equal(t, "test-model", got.Model)
	require.NotNil(t, got.Text)
	assert.Equal(t, "json_object", got.Text.Format.Type)
}

func TestChatCV_ReportsUsage(t *testing.T) {
	var got responsesRequest
	srv := fakeOpenAI(t, http.StatusOK, "What was your last role?", &got)
	defer srv.Close()

	reply, err := newTestClient(srv.URL).ChatCV(context.Background(),
		[]Message{{Role: "assistant", Content: "Hi"}}, "I want a CV")
	require.NoError(t, err)
	assert.Equal(t, "What was your last role?", reply.Text)
	assert.Equal(t, 250, reply.OutputTokens)
	require.Len(t, got.Input, 2)
	assert.Equal(t, "user", got.Input[1].Role)
	assert.Nil(t, got.Text)
}

func TestStructureCV(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusOK, `{"title":"","data":{"fullName":"Ada"}}`, nil)
	defer srv.Close()
	cv, err := newTestClient(srv.URL).StructureCV(context.Background(), "Ada Lovelace ...")
	require.NoError(t, err)
	assert.Equal(t, "Imported CV", cv.Title)
	assert.JSONEq(t, `{"fullName":"Ada"}`, string(cv.Data))
}

func TestErrors(t *testing.T) {
	srv := fakeOpenAI(t, http.StatusInternalServerError, "", nil)
	defer srv.Close()
	_, err := newTestClient(srv.URL).ChatCV(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")

	_, err = New(config.AIConfig{BaseURL: srv.URL}).ChatCV(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)

	bad := fakeOpenAI(t, http.StatusOK, "not json", nil)
	defer bad.Close()
	_, err = newTestClient(bad.URL).StructureCV(context.Background(), "text")
	assert.Error(t, err)
}
