package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"loro-platform/config"
	"loro-platform/models"
	"loro-platform/services"
	"loro-platform/utils"
)

// LicenseChecker resolves an organisation's valid license. services.LicenseService implements it.
type LicenseChecker interface {
	Validate(ctx context.Context, organisationID string) (*models.License, error)
}

// RequireLicense rejects organisations without a valid license. The result is memoised on
// the request context, so stacking the guard is free.
func RequireLicense(checker LicenseChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := FromCtx(c)
		if rc == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required")
		}
		if rc.License != nil {
			return c.Next()
		}

		lic, err := checker.Validate(c.UserContext(), rc.OrganisationID)
		if err != nil {
			if errors.Is(err, services.ErrForbidden) {
				log.Printf("🚫 [LICENSE] %s denied: %v", rc.OrganisationID, err)
				return utils.Fail(c, fiber.StatusForbidden, "organisation license is missing or inactive")
			}
			log.Errorf("❌ [LICENSE] lookup for %s failed: %v", rc.OrganisationID, err)
			return utils.Fail(c, fiber.StatusInternalServerError, "license check failed")
		}
		rc.License = lic
		rc.Plan = lic.Plan
		return c.Next()
	}
}

// RequireRoles admits only callers whose role is listed.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := FromCtx(c)
		if rc == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required")
		}
		for _, r := range roles {
			if rc.Role == r {
				return c.Next()
			}
		}
		return utils.Fail(c, fiber.StatusForbidden, "insufficient role")
	}
}

// RequireFeature checks the plan resolved by RequireLicense against the feature map.
func RequireFeature(features config.FeatureMap, feature string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc := FromCtx(c)
		if rc == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !features.Allows(string(rc.Plan), feature) {
			return utils.Fail(c, fiber.StatusForbidden, "feature "+feature+" is not included in your plan")
		}
		return c.Next()
	}
}
