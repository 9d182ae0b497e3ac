package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"loro-platform/config"
	"loro-platform/middleware"
	"loro-platform/models"
	"loro-platform/services"
	"loro-platform/utils"
)

// SetupLicensingRoutes is mounted without the license guard so an organisation can still
// see why it was locked out.
func SetupLicensingRoutes(r fiber.Router, svc *services.LicenseService, features config.FeatureMap) {
	r.Get("/me", func(c *fiber.Ctx) error {
		a := actor(c)
		lic, err := svc.Lookup(c.UserContext(), a.OrganisationID)
		if err != nil {
			return respondError(c, err)
		}
		enabled := features.Features(string(lic.Plan))
		sort.Strings(enabled)
		if !lic.IsValid(svc.Now()) {
			enabled = []string{}
		}
		return utils.OK(c, "license retrieved", fiber.Map{
			"license":  lic,
			"valid":    lic.IsValid(svc.Now()),
			"features": enabled,
		})
	})

	developer := middleware.RequireRoles(models.RoleDeveloper)

	r.Post("/", developer, func(c *fiber.Ctx) error {
		var in services.LicenseInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		lic, err := svc.Upsert(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "license saved", lic)
	})

	r.Patch("/:id/suspend", developer, func(c *fiber.Ctx) error {
		lic, err := svc.Suspend(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "license suspended", lic)
	})
}
