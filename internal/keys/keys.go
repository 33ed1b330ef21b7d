// Package keys holds the SMP signing key and the trust anchors its
// certificate is checked against.
package keys

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"

	dErrors "smp/pkg/domain-errors"
)

// Manager signs documents with the SMP key.
type Manager struct {
	signer crypto.Signer
	cert   *x509.Certificate
	roots  *x509.CertPool
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Load reads a PKCS#12 keystore holding one private key and its certificate,
// and an optional PEM truststore.
func Load(keystorePath, password, truststorePath string, opts ...Option) (*Manager, error) {
	if keystorePath == "" {
		return nil, dErrors.New(dErrors.CodeInitialization, "no keystore configured")
	}
	data, err := os.ReadFile(keystorePath)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInitialization, "failed to read keystore")
	}
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInitialization, "failed to decode keystore")
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInitialization, "keystore key cannot sign")
	}
	var roots *x509.CertPool
	if truststorePath != "" {
		pem, err := os.ReadFile(truststorePath)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInitialization, "failed to read truststore")
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, dErrors.New(dErrors.CodeInitialization, "truststore contains no PEM certificates")
		}
	}
	return NewFromKeyPair(signer, cert, roots, opts...)
}

// NewFromKeyPair builds a manager from an already loaded key and certificate.
// roots may be nil, in which case the certificate chain is not verified.
func NewFromKeyPair(signer crypto.Signer, cert *x509.Certificate, roots *x509.CertPool, opts ...Option) (*Manager, error) {
	if signer == nil || cert == nil {
		return nil, dErrors.New(dErrors.CodeInitialization, "signing key and certificate are required")
	}
	m := &Manager{signer: signer, cert: cert, roots: roots, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Certificate returns the SMP certificate.
func (m *Manager) Certificate() *x509.Certificate {
	return m.cert
}

// IsCertificateValid reports whether the certificate is inside its validity
// window and, with a truststore, chains to one of its anchors.
func (m *Manager) IsCertificateValid() bool {
	if m == nil || m.cert == nil {
		return false
	}
	now := m.now()
	if now.Before(m.cert.NotBefore) || now.After(m.cert.NotAfter) {
		m.logger.Warn("SMP certificate is outside its validity period",
			"subject", m.cert.Subject.String(),
			"not_before", m.cert.NotBefore,
			"not_after", m.cert.NotAfter,
		)
		return false
	}
	if m.roots == nil {
		return true
	}
	_, err := m.cert.Verify(x509.VerifyOptions{
		Roots:       m.roots,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		m.logger.Warn("SMP certificate does not chain to the truststore", "error", err)
		return false
	}
	return true
}

// Sign returns the signature over the SHA-256 digest of doc.
func (m *Manager) Sign(ctx context.Context, doc []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	digest := sha256.Sum256(doc)
	sig, err := m.signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign document")
	}
	return sig, nil
}

// Verify checks a signature made by Sign against the SMP certificate.
func (m *Manager) Verify(doc, sig []byte) error {
	algo := x509.SHA256WithRSA
	if m.cert.PublicKeyAlgorithm == x509.ECDSA {
		algo = x509.ECDSAWithSHA256
	}
	if err := m.cert.CheckSignature(algo, doc, sig); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "signature does not match")
	}
	return nil
}
