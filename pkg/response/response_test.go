package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/changeboard-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestJSONDisablesCaching(t *testing.T) {
	c, w := newContext()
	JSON(c, http.StatusOK, gin.H{"count": 0})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"count":0}`, w.Body.String())
}

func TestErrorUsesTypedStatus(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported export format"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unsupported export format", body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
}

func TestErrorHidesUntypedCause(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("dial tcp: refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
	assert.Len(t, c.Errors, 1)
}

func TestAttachmentSetsDisposition(t *testing.T) {
	c, w := newContext()
	Attachment(c, "inventory-changes.csv", "text/csv; charset=utf-8", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="inventory-changes.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
