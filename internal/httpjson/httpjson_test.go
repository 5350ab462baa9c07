package httpjson

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	var b body
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"crag"}`))
	require.NoError(t, Read(httptest.NewRecorder(), r, &b))
	assert.Equal(t, "crag", b.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nme":"crag"}`))
	assert.Error(t, Read(httptest.NewRecorder(), r, &b))

	b = body{}
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, Read(httptest.NewRecorder(), r, &b))
	assert.Empty(t, b.Name)
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusNotFound, "gone")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"gone"}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}
