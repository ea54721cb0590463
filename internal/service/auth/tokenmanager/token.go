package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/apolyakov/staffdir/internal/apperrors"
	"github.com/apolyakov/staffdir/internal/models"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSigningMethod   = "HS256"
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Token kinds carried in the signed payload
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

type Claims struct {
	jwt.RegisteredClaims
	Kind string `json:"type"`
}

// Token manager config with sensible defaults
type Config struct {
	// Secret key to sign token payloads
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager mints and parses signed tokens. It is stateless: whether a
// refresh token is still usable is the ledger's business, not its own.
type TokenManager struct {
	// Secret key to sign token payloads
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Access and refresh token lifetimes
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		key:        cfg.SecretKey,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// Parsed is a token that passed signature and expiry checks. Concrete type is
// ParsedAccess or ParsedRefresh; only the refresh variant carries a token id,
// so an access token cannot even be asked for one.
type Parsed interface {
	parsedToken()
}

type ParsedAccess struct {
	Subject   string
	ExpiresAt time.Time
}

type ParsedRefresh struct {
	Subject   string
	TokenID   uuid.UUID
	ExpiresAt time.Time
}

func (ParsedAccess) parsedToken()  {}
func (ParsedRefresh) parsedToken() {}

// MintAccess issues a short lived access token for the subject.
// Access tokens are stateless: valid by signature and expiry alone.
func (m *TokenManager) MintAccess(subject string) (models.IssuedToken, error) {
	token, _, err := m.mint(subject, KindAccess, m.accessTTL)
	return token, err
}

// MintRefresh issues a refresh token and returns its jti so the caller can
// record the ledger entry for it.
func (m *TokenManager) MintRefresh(subject string) (models.IssuedToken, uuid.UUID, error) {
	return m.mint(subject, KindRefresh, m.refreshTTL)
}

func (m *TokenManager) mint(subject string, kind string, ttl time.Duration) (models.IssuedToken, uuid.UUID, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	jti := uuid.New()

	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   subject,
				ID:        jti.String(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			Kind: kind,
		},
	)
	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, uuid.Nil, fmt.Errorf("error while signing %s token. Err: %w", kind, err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, jti, nil
}

// Parse verifies signature and expiry and returns the tagged variant.
// Any failure maps to apperrors.ErrTokenExpired or apperrors.ErrTokenInvalid.
func (m *TokenManager) Parse(tokenString string) (Parsed, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("error while parsing token: %w", apperrors.ErrTokenExpired)
	default:
		return nil, fmt.Errorf("error while parsing token: %w", apperrors.ErrTokenInvalid)
	}

	switch claims.Kind {
	case KindAccess:
		return ParsedAccess{
			Subject:   claims.Subject,
			ExpiresAt: claims.ExpiresAt.Time,
		}, nil
	case KindRefresh:
		jti, err := uuid.Parse(claims.ID)
		if err != nil {
			return nil, fmt.Errorf("refresh token with bad jti: %w", apperrors.ErrTokenInvalid)
		}
		return ParsedRefresh{
			Subject:   claims.Subject,
			TokenID:   jti,
			ExpiresAt: claims.ExpiresAt.Time,
		}, nil
	default:
		return nil, fmt.Errorf("unknown token kind %q: %w", claims.Kind, apperrors.ErrTokenInvalid)
	}
}
