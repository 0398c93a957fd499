package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/cohab/internal/domain"
)

// Context keys for storing user info
const (
	UserIDKey    = "userID"
	RoleKey      = "role"
	EmailKey     = "email"
	StudentIDKey = "student_id"
)

// Session cookie names
const (
	AccessCookieName  = "cohab_token"
	RefreshCookieName = "cohab_refresh"
)

// SetSessionCookie writes an httpOnly session cookie. Secure cookies use
// SameSite=None so a frontend on another origin can send them.
func SetSessionCookie(c *fiber.Ctx, name, value string, ttl time.Duration, secure bool) {
	sameSite := fiber.CookieSameSiteLaxMode
	if secure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
	})
}

// ClearSessionCookies expires both session cookies
func ClearSessionCookies(c *fiber.Ctx, secure bool) {
	SetSessionCookie(c, AccessCookieName, "", -time.Hour, secure)
	SetSessionCookie(c, RefreshCookieName, "", -time.Hour, secure)
}

// VerifyCohabToken validates the JWT and extracts claims. The token is read
// from the Authorization header first, then from the session cookie.
func VerifyCohabToken(jwtSecret string, cookieSecure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, fromCookie := bearerToken(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization token",
				"code":  "unauthorized",
			})
		}

		claims := &domain.CohabClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid || claims.UserID == "" {
			if fromCookie {
				ClearSessionCookies(c, cookieSecure)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
				"code":  "unauthorized",
			})
		}

		c.Locals(UserIDKey, claims.UserID)
		c.Locals(RoleKey, claims.Role)
		c.Locals(EmailKey, claims.Email)
		c.Locals(StudentIDKey, claims.StudentID)

		return c.Next()
	}
}

// AuthorizeRole checks that the user has one of the allowed roles
func AuthorizeRole(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(RoleKey).(string)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "No role found in token",
				"code":  "unauthorized",
			})
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":          "Insufficient permissions",
			"code":           "forbidden",
			"required_roles": allowedRoles,
		})
	}
}

// CurrentUserID returns the authenticated user's ID
func CurrentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDKey).(string)
	return id
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	if header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			return strings.TrimSpace(header[7:]), false
		}
		return header, false
	}
	return c.Cookies(AccessCookieName), true
}
