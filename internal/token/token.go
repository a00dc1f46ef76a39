// Package token validates the upload tokens devices attach to their uploads.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken matches every validation failure.
	ErrInvalidToken = errors.New("invalid upload token")
	// ErrExpired is returned, wrapped with ErrInvalidToken, for expired tokens.
	ErrExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// Claims carried by an upload token.
type Claims struct {
	UID        string `json:"uid"`
	UploadCode string `json:"uploadCode"`
	jwt.RegisteredClaims
}

// Identity is what a valid token resolves to.
type Identity struct {
	UID        string
	UploadCode string
}

// Service issues and validates HS256 upload tokens.
type Service struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(secret []byte, issuer string) *Service {
	return &Service{secret: secret, issuer: issuer, now: time.Now}
}

// Issue signs a token for uid valid for ttl.
func (s *Service) Issue(uid, uploadCode string, ttl time.Duration) (string, error) {
	if uid == "" {
		return "", errors.New("uid is required")
	}
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UID:        uid,
		UploadCode: uploadCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses raw and returns the uploader identity. With checkExpiry
// false the registered claims (exp, iat, iss) are not checked, which is what
// replays of old uploads need; the signature always is.
func (s *Service) Validate(ctx context.Context, raw string, checkExpiry bool) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if raw == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if checkExpiry {
		opts = append(opts, jwt.WithExpirationRequired())
		if s.issuer != "" {
			opts = append(opts, jwt.WithIssuer(s.issuer))
		}
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UID == "" {
		return Identity{}, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}
	return Identity{UID: claims.UID, UploadCode: claims.UploadCode}, nil
}
