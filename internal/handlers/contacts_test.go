package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactsUpdateRequiresIdentity(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	h := NewContactsHandler(logger, nil, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/admin/contacts/abc",
		strings.NewReader(`{"bot_paused":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := h.Update(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
