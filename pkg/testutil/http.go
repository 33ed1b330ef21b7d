// Package testutil holds helpers for exercising the read-only registry API
// from handler tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errorResponse mirrors the body written by httputil.WriteError.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewRequest builds a body-less request. The registry API only serves reads.
func NewRequest(t testing.TB, method, path string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Accept", "application/json")
	return req
}

func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// ReadBody drains the recorder. A second call returns an empty slice.
func ReadBody(t testing.TB, rr *httptest.ResponseRecorder) []byte {
	t.Helper()
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err, "reading response body")
	return body
}

func decode[T any](t testing.TB, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	body := ReadBody(t, rr)
	require.NoErrorf(t, json.Unmarshal(body, &out), "decoding response %q", body)
	return out
}

// UnmarshalResponse decodes a successful JSON response into T.
func UnmarshalResponse[T any](t testing.TB, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	out := decode[T](t, rr)
	return &out
}

func AssertStatus(t testing.TB, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equalf(t, want, rr.Code, "status of response %q", rr.Body.String())
}

func AssertStatusOK(t testing.TB, rr *httptest.ResponseRecorder) {
	t.Helper()
	AssertStatus(t, rr, http.StatusOK)
}

// AssertStatusAndError checks the status and the machine readable error code
// of a failed request. Client errors must carry a description.
func AssertStatusAndError(t testing.TB, rr *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	AssertStatus(t, rr, wantStatus)
	body := decode[errorResponse](t, rr)
	assert.Equal(t, wantCode, body.Error, "error code")
	if wantStatus < http.StatusInternalServerError {
		assert.NotEmpty(t, body.ErrorDescription, "error description")
	}
}

// AssertJSONContains checks one top-level field of a JSON object response.
func AssertJSONContains(t testing.TB, rr *httptest.ResponseRecorder, key string, want any) {
	t.Helper()
	body := decode[map[string]any](t, rr)
	got, ok := body[key]
	if assert.Truef(t, ok, "field %q missing", key) {
		assert.Equalf(t, want, got, "field %q", key)
	}
}
