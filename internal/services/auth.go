package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/observer-backend/internal/data/repos"
	"github.com/yungbote/observer-backend/internal/pkg/ctxutil"
	"github.com/yungbote/observer-backend/internal/pkg/dbctx"
	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

var ErrUnauthorized = errors.New("unauthorized")

// JWTClaims: sub is the acting user id. Tokens are minted by the
// account service; this process only verifies them.
type JWTClaims struct {
	Admin     bool   `json:"admin,omitempty"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(userID string, admin bool) (string, error)
}

type authService struct {
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(baseLog *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) IssueToken(userID string, admin bool) (string, error) {
	if strings.TrimSpace(as.jwtSecretKey) == "" {
		return "", fmt.Errorf("jwt secret not configured")
	}
	now := time.Now()
	claims := &JWTClaims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	claims := &JWTClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return ctx, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	userID := strings.TrimSpace(claims.Subject)
	if err := validateUserID(userID); err != nil {
		return ctx, fmt.Errorf("%w: invalid subject", ErrUnauthorized)
	}

	if !claims.Admin {
		ok, err := as.userRepo.ActiveIDExists(dbctx.From(ctx), userID)
		if err != nil {
			return ctx, storeErr("lookup token subject", err)
		}
		if !ok {
			return ctx, fmt.Errorf("%w: unknown or inactive user", ErrUnauthorized)
		}
	}

	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		SessionID:   claims.SessionID,
		IsAdmin:     claims.Admin,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

// IsUnauthorized reports whether err came from token verification.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
