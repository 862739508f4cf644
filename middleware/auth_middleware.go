package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
)

var ErrBadClaims = errors.New("token claims are incomplete")

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// RoleRequired rejects callers whose token role is not one of roles.
func RoleRequired(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := CurrentPrincipal(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}
		for _, r := range roles {
			if p.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: insufficient role",
		})
	}
}

// CurrentPrincipal decodes the caller set by Protected.
func CurrentPrincipal(c *fiber.Ctx) (models.Principal, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return models.Principal{}, ErrBadClaims
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Principal{}, ErrBadClaims
	}
	return PrincipalFromClaims(claims)
}

func PrincipalFromClaims(claims jwt.MapClaims) (models.Principal, error) {
	id, ok := claims["user_id"].(float64)
	if !ok {
		return models.Principal{}, ErrBadClaims
	}
	role, ok := claims["role"].(string)
	if !ok {
		return models.Principal{}, ErrBadClaims
	}
	p := models.Principal{ID: int(id), Role: role}
	p.Name, _ = claims["name"].(string)
	if raw, ok := claims["papers"].([]interface{}); ok {
		for _, v := range raw {
			if code, ok := v.(string); ok {
				p.Papers = append(p.Papers, code)
			}
		}
	}
	return p, nil
}

// IssueToken signs a token for user valid for ttl.
func IssueToken(secret string, user models.User, ttl time.Duration) (string, error) {
	papers := user.Papers
	if papers == nil {
		papers = []string{}
	}
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"name":    user.FullName,
		"papers":  papers,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a raw token outside the fiber middleware chain, as the
// websocket handshake needs.
func ParseToken(secret, raw string) (models.Principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return models.Principal{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Principal{}, ErrBadClaims
	}
	return PrincipalFromClaims(claims)
}
