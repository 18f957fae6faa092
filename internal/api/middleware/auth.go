package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/cmo-ops/realtime-system/internal/core/domain"
)

// Verifier validates gateway-issued HS256 tokens and extracts the
// connected-user identity from the claims. It is shared by the REST auth
// middleware and the WebSocket hub's auth-frame handling.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token and returns the identity it carries.
func (v *Verifier) Verify(token string) (*domain.ConnectedUser, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}

	user := &domain.ConnectedUser{
		Nombre: stringClaim(claims, "nombre"),
		Email:  stringClaim(claims, "email"),
		Rol:    stringClaim(claims, "rol"),
	}
	if id, ok := numberClaim(claims, "id"); ok {
		user.ID = id
	}
	if areaID, ok := numberClaim(claims, "area_id"); ok {
		user.Area = &domain.Area{ID: areaID, Nombre: stringClaim(claims, "area_nombre")}
	}

	if user.ID == 0 || user.Rol == "" {
		return nil, errors.New("token missing identity claims")
	}
	return user, nil
}

// Auth validates the bearer token and injects the identity into context.
func Auth(v *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			user, err := v.Verify(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("user_id", user.ID)
			c.Set("nombre", user.Nombre)
			c.Set("rol", user.Rol)

			return next(c)
		}
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

func numberClaim(claims jwt.MapClaims, key string) (int, bool) {
	// JSON numbers decode as float64 in MapClaims.
	f, ok := claims[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}
