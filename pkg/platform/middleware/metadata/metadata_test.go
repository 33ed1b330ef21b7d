package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"smp/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, want: "1.2.3.4"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 5.6.7.8 "}, want: "5.6.7.8"},
		{name: "remote addr", remote: "9.9.9.9:4431", want: "9.9.9.9"},
		{name: "nothing", want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var gotID, gotUA string
	h := chimw.RequestID(ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotID = requestcontext.RequestID(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	})))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "phase4-ap")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.NotEmpty(t, gotID)
	assert.Equal(t, "phase4-ap", gotUA)
}

func TestDeviceFromUserAgent(t *testing.T) {
	t.Run("empty header leaves the device unknown", func(t *testing.T) {
		assert.Zero(t, DeviceFromUserAgent("  "))
	})

	t.Run("crawler is flagged as bot", func(t *testing.T) {
		d := DeviceFromUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
		assert.True(t, d.Bot)
		assert.False(t, d.Mobile)
	})

	t.Run("desktop browser", func(t *testing.T) {
		d := DeviceFromUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0")
		assert.False(t, d.Bot)
		assert.Equal(t, "Firefox 128.0", d.Browser)
		assert.Contains(t, d.OS, "Windows")
	})
}

func TestClientMetadataStoresDevice(t *testing.T) {
	var got requestcontext.Device
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.ClientDevice(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "Firefox 128.0", got.Browser)
}
