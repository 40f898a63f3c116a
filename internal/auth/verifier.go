package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")

	errUnknownKey = errors.New("unknown signing key")
)

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.TokenClaims, error)
}

// KeySource resolves the RSA public key for a token's kid header.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type firebaseClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	AuthTime int64  `json:"auth_time"`
	jwt.RegisteredClaims
}

// FirebaseVerifier validates Firebase ID tokens: RS256 signed by one of the
// published Google certificates, issued for the configured project.
type FirebaseVerifier struct {
	projectID   string
	keys        KeySource
	revocations RevocationList
	now         func() time.Time
}

type VerifierOption func(*FirebaseVerifier)

// WithRevocationList enables revoked-token detection.
func WithRevocationList(r RevocationList) VerifierOption {
	return func(v *FirebaseVerifier) {
		v.revocations = r
	}
}

func WithClock(now func() time.Time) VerifierOption {
	return func(v *FirebaseVerifier) {
		v.now = now
	}
}

func NewFirebaseVerifier(projectID string, keys KeySource, opts ...VerifierOption) *FirebaseVerifier {
	v := &FirebaseVerifier{
		projectID: projectID,
		keys:      keys,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

func (v *FirebaseVerifier) issuer() string {
	return "https://securetoken.google.com/" + v.projectID
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*domain.TokenClaims, error) {
	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errUnknownKey
		}
		return v.keys.PublicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer()),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, errKeySourceUnavailable):
			return nil, fmt.Errorf("failed to load signing keys: %w", err)
		default:
			log.WithError(err).Debug("Token rejected")
			return nil, ErrTokenInvalid
		}
	}

	out := &domain.TokenClaims{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	out.AuthTime = out.IssuedAt
	if claims.AuthTime > 0 {
		out.AuthTime = time.Unix(claims.AuthTime, 0)
	}

	if v.revocations != nil && out.SubjectID != "" {
		validAfter, found, err := v.revocations.ValidAfter(ctx, out.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if found && out.AuthTime.Before(validAfter) {
			return nil, ErrTokenRevoked
		}
	}
	return out, nil
}

var errKeySourceUnavailable = errors.New("signing keys unavailable")

// CertSource fetches Google's x509 certificate map and caches it for the
// max-age the endpoint advertises.
type CertSource struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

func NewCertSource(url string, client *http.Client) *CertSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CertSource{url: url, client: client, now: time.Now}
}

func (s *CertSource) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := s.now().Before(s.expires)
	s.mu.RUnlock()
	if fresh {
		if !ok {
			return nil, errUnknownKey
		}
		return key, nil
	}

	if err := s.refresh(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", errKeySourceUnavailable, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok = s.keys[kid]
	if !ok {
		return nil, errUnknownKey
	}
	return key, nil
}

func (s *CertSource) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from certificate endpoint", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("failed to decode certificates: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, raw := range certs {
		key, err := parseCertificateKey(raw)
		if err != nil {
			log.WithError(err).WithField("kid", kid).Warn("Skipping unparseable signing certificate")
			continue
		}
		keys[kid] = key
	}

	s.mu.Lock()
	s.keys = keys
	s.expires = s.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	s.mu.Unlock()

	log.WithField("keys", len(keys)).Debug("Refreshed signing certificates")
	return nil
}

func parseCertificateKey(raw string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate does not hold an RSA key")
	}
	return key, nil
}

// maxAge reads max-age from a Cache-Control header, defaulting to one hour.
func maxAge(header string) time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return time.Hour
}

// StaticKeys is a fixed kid to key map.
type StaticKeys map[string]*rsa.PublicKey

func (k StaticKeys) PublicKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	key, ok := k[kid]
	if !ok {
		return nil, errUnknownKey
	}
	return key, nil
}
