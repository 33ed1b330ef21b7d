// Package urlprovider derives the DNS names under which an SML publishes a
// participant.
package urlprovider

import (
	"crypto/md5" //nolint:gosec // the legacy CNAME scheme is defined over MD5
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

// Kind selects the DNS naming scheme.
type Kind string

const (
	// KindNAPTR is the Peppol/BDXL scheme: base32 of the SHA-256 of the
	// lower-cased participant value.
	KindNAPTR Kind = "naptr"
	// KindCNAME is the legacy scheme: "B-" and the hex MD5 of the
	// lower-cased participant value.
	KindCNAME Kind = "cname"
)

const (
	DefaultExpiration      = time.Hour
	DefaultCleanupInterval = 2 * time.Hour
)

var naptrEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// KindFor returns the naming scheme used with an identifier type.
func KindFor(identifierType string) Kind {
	if identifierType == identifier.KindSimple {
		return KindCNAME
	}
	return KindNAPTR
}

// Provider computes and caches participant DNS names.
type Provider struct {
	kind  Kind
	cache *gocache.Cache
}

type Option func(*Provider)

// WithExpiration changes how long computed names stay cached.
func WithExpiration(expiration, cleanup time.Duration) Option {
	return func(p *Provider) {
		p.cache = gocache.New(expiration, cleanup)
	}
}

func New(kind Kind, opts ...Option) (*Provider, error) {
	if kind != KindNAPTR && kind != KindCNAME {
		return nil, dErrors.Newf(dErrors.CodeInitialization, "unknown URL provider kind %q", kind)
	}
	p := &Provider{kind: kind, cache: gocache.New(DefaultExpiration, DefaultCleanupInterval)}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Kind() Kind {
	return p.kind
}

// DNSName returns the host name of pid inside an SML DNS zone, without the
// trailing dot.
func (p *Provider) DNSName(pid identifier.Participant, zone string) (string, error) {
	if pid.IsZero() || pid.Value == "" {
		return "", dErrors.New(dErrors.CodeValidation, "participant identifier is required")
	}
	zone = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(zone)), ".")
	if zone == "" {
		return "", dErrors.New(dErrors.CodeValidation, "DNS zone is required")
	}
	key := string(p.kind) + "|" + zone + "|" + pid.URIEncoded()
	if cached, ok := p.cache.Get(key); ok {
		if name, ok := cached.(string); ok {
			return name, nil
		}
	}

	value := strings.ToLower(pid.Value)
	var label string
	switch p.kind {
	case KindCNAME:
		sum := md5.Sum([]byte(value)) //nolint:gosec
		label = "B-" + hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256([]byte(value))
		label = naptrEncoding.EncodeToString(sum[:])
	}
	parts := []string{label}
	if pid.Scheme != "" {
		parts = append(parts, strings.ToLower(pid.Scheme))
	}
	parts = append(parts, zone)
	name := strings.Join(parts, ".")

	p.cache.SetDefault(key, name)
	return name, nil
}

// Flush drops all cached names.
func (p *Provider) Flush() {
	p.cache.Flush()
}
