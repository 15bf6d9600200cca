// Package auth verifies the HS256 access tokens issued by the identity
// service. Issue exists for local tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/enums"
)

var (
	ErrMissingSubject = errors.New("token missing user id")
	ErrUnknownRole    = errors.New("token carries unknown role")
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the token body: the identity service writes the user id under
// "id" and the role in upper case ("CUSTOMER"); both spellings of the role
// are accepted.
type Claims struct {
	UserID uuid.UUID `json:"id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the verified caller.
type Principal struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	AccessID string
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Verifier{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...)}, nil
}

// Verify checks signature, expiry and issuer, then resolves the role.
func (v *Verifier) Verify(raw string) (Principal, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return Principal{}, err
	}
	if claims.UserID == uuid.Nil {
		return Principal{}, ErrMissingSubject
	}
	role, err := enums.ParseActorRole(claims.Role)
	if err != nil {
		return Principal{}, fmt.Errorf("%w %q", ErrUnknownRole, claims.Role)
	}
	return Principal{UserID: claims.UserID, Role: role, AccessID: claims.ID}, nil
}

// Issue signs a token for p that expires after the configured lifetime.
func Issue(cfg config.JWTConfig, now time.Time, p Principal) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errors.New("jwt secret is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case p.UserID == uuid.Nil:
		return "", ErrMissingSubject
	case !p.Role.IsValid():
		return "", fmt.Errorf("%w %q", ErrUnknownRole, p.Role)
	}

	accessID := strings.TrimSpace(p.AccessID)
	if accessID == "" {
		accessID = uuid.NewString()
	}
	claims := Claims{
		UserID: p.UserID,
		Role:   strings.ToUpper(string(p.Role)),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        accessID,
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}
