// Package metadata copies client and request metadata into the request
// context.
package metadata

import (
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/mssola/useragent"

	"smp/pkg/requestcontext"
)

// ClientMetadata stores the client IP, the raw and parsed User-Agent and the
// chi request ID in the context. Apply it after chi's RequestID middleware.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), ua)
		ctx = requestcontext.WithClientDevice(ctx, DeviceFromUserAgent(ua))
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceFromUserAgent parses a User-Agent header. An empty header yields the
// zero Device.
func DeviceFromUserAgent(raw string) requestcontext.Device {
	if strings.TrimSpace(raw) == "" {
		return requestcontext.Device{}
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return requestcontext.Device{
		Browser: strings.TrimSpace(name + " " + version),
		OS:      ua.OS(),
		Bot:     ua.Bot(),
		Mobile:  ua.Mobile(),
	}
}

// ClientIPFromRequest extracts the client IP, preferring proxy headers.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the original client.
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
