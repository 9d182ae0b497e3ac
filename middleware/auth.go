package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"

	"loro-platform/models"
	"loro-platform/services"
	"loro-platform/utils"
)

const requestContextKey = "request_context"

// Claims carried by LORO access tokens. Subject-independent: uid is the local users.id.
type Claims struct {
	UserID         string  `json:"uid"`
	Role           string  `json:"role"`
	OrganisationID string  `json:"organisationId"`
	BranchID       *string `json:"branchId,omitempty"`
	LicensePlan    string  `json:"licensePlan,omitempty"`
	jwt.RegisteredClaims
}

// RequestContext is the authenticated caller, attached to c.Locals by Authenticate.
type RequestContext struct {
	UserID         string
	Role           models.Role
	OrganisationID string
	BranchID       *string
	Plan           models.LicensePlan
	License        *models.License
}

// Actor converts the request context into the services' caller type.
func (rc *RequestContext) Actor() services.Actor {
	return services.Actor{
		UserID:         rc.UserID,
		Role:           rc.Role,
		OrganisationID: rc.OrganisationID,
		BranchID:       rc.BranchID,
	}
}

// FromCtx returns the caller, or nil on unauthenticated routes.
func FromCtx(c *fiber.Ctx) *RequestContext {
	rc, _ := c.Locals(requestContextKey).(*RequestContext)
	return rc
}

// TokenVerifier parses and checks bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

var errMissingClaims = errors.New("token is missing uid or organisationId")

func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.OrganisationID == "" {
		return nil, errMissingClaims
	}
	return claims, nil
}

// Sign issues a token; used by the CLI and tests.
func (v *TokenVerifier) Sign(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	if c.IssuedAt == nil {
		c.IssuedAt = jwt.NewNumericDate(now)
	}
	if c.ExpiresAt == nil {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	if c.Issuer == "" {
		c.Issuer = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}

func attach(c *fiber.Ctx, claims *Claims) *RequestContext {
	rc := &RequestContext{
		UserID:         claims.UserID,
		Role:           models.Role(claims.Role),
		OrganisationID: claims.OrganisationID,
		BranchID:       claims.BranchID,
		Plan:           models.LicensePlan(claims.LicensePlan),
	}
	c.Locals(requestContextKey, rc)
	return rc
}

// Authenticate requires `Authorization: Bearer <jwt>`.
func Authenticate(v *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required")
		}

		claims, err := v.Verify(strings.TrimSpace(raw))
		if err != nil {
			log.Debugf("🚫 [AUTH] rejected token on %s: %v", c.Path(), err)
			return utils.Fail(c, fiber.StatusUnauthorized, "invalid or expired token")
		}
		attach(c, claims)
		return c.Next()
	}
}
