package cvs

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/middleware"
	"github.com/kariyerai/backend/internal/pdftext"
)

func newRouter(h *harness) *gin.Engine {
	gin.SetMode(gin.TestMode)
	hd := NewHandler(h.svc, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.ContextUserID, h.user); c.Next() })
	r.POST("/cvs", hd.Create)
	r.GET("/cvs/:id", hd.Get)
	r.POST("/cvs/import", hd.Import)
	return r
}

func upload(r *gin.Engine, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "cv.pdf")
	_, _ = fw.Write(content)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/cvs/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_LimitReachedIs403WithCode(t *testing.T) {
	h := newHarness(5)
	r := newRouter(h)
	body, _ := json.Marshal(Input{Title: "First"})

	req := httptest.NewRequest(http.MethodPost, "/cvs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = upload(r, fakePDF)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"CV_LIMIT_REACHED"`)
}

func TestHandler_ImportInsufficientBalance(t *testing.T) {
	h := newHarness(0)
	w := upload(newRouter(h), fakePDF)
	require.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INSUFFICIENT_BALANCE", body["code"])
	assert.EqualValues(t, 2, body["required"])
	assert.EqualValues(t, 0, body["available"])
}

func TestHandler_ImportNonPDFIs400(t *testing.T) {
	h := newHarness(5)
	w := upload(newRouter(h), []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, h.ai.calls)
}

func TestHandler_ImportUnreadablePDFIs422(t *testing.T) {
	h := newHarness(5)
	h.svc.extract = func([]byte) (string, error) { return "", pdftext.ErrNoText }
	w := upload(newRouter(h), fakePDF)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PDF_UNREADABLE")
	assert.Zero(t, h.ai.calls)
}

func TestHandler_ImportCreated(t *testing.T) {
	h := newHarness(5)
	w := upload(newRouter(h), fakePDF)
	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Data ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.Balance)
	assert.NotEqual(t, uuid.Nil, body.Data.CV.ID)
}
