package echoapi

import (
	"context"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kia/core"
	"github.com/trezcool/kia/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Token types
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Type  string `json:"type"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// UserID returns the ID stored in the subject claim.
func (c Claims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}

// TokenIssuer signs access and refresh tokens for parents.
type TokenIssuer struct {
	appName    string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(conf *core.Config) *TokenIssuer {
	return &TokenIssuer{
		appName:    conf.AppName,
		secret:     []byte(conf.SecretKey),
		accessTTL:  conf.Server.JWTExpirationDelta,
		refreshTTL: conf.Server.JWTRefreshExpirationDelta,
	}
}

func (ti *TokenIssuer) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.secret,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func (ti *TokenIssuer) claims(usr user.User, typ string) *Claims {
	now := time.Now()
	ttl := ti.accessTTL
	if typ == TokenRefresh {
		ttl = ti.refreshTTL
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.appName,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Type:  typ,
		Email: usr.Email,
		Role:  usr.Role,
	}
}

func (ti *TokenIssuer) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(ti.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (ti *TokenIssuer) AccessToken(usr user.User) (string, error) {
	return ti.sign(ti.claims(usr, TokenAccess))
}

func (ti *TokenIssuer) RefreshToken(usr user.User) (string, error) {
	return ti.sign(ti.claims(usr, TokenRefresh))
}

// authenticate checks the credentials of a parent and records the login.
func authenticate(ctx context.Context, email, pwd string, svc user.Service) (user.User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errInvalidCredentials
		}
		return user.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errInvalidCredentials
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	if !usr.IsParent() {
		return user.User{}, errParentsOnly
	}

	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}
