package handlers

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"loro-platform/middleware"
	"loro-platform/models"
	"loro-platform/services"
	"loro-platform/utils"
)

func SetupUserRoutes(r fiber.Router, svc *services.UserService) {
	admins := middleware.RequireRoles(models.RoleOwner, models.RoleAdmin, models.RoleHR)

	r.Get("/", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		users, total, err := svc.Search(c.UserContext(), actor(c), c.Query("q"), c.Query("role"), p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "users retrieved", users, utils.NewMeta(p, total))
	})

	r.Get("/me", func(c *fiber.Ctx) error {
		a := actor(c)
		u, err := svc.Get(c.UserContext(), a, a.UserID)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "user retrieved", u)
	})

	r.Post("/me/login-ping", func(c *fiber.Ctx) error {
		awarded, err := svc.LoginPing(c.UserContext(), actor(c))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "login recorded", fiber.Map{"xpAwarded": awarded})
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		u, err := svc.Get(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "user retrieved", u)
	})

	r.Post("/", admins, func(c *fiber.Ctx) error {
		var in services.UserInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		u, err := svc.Create(c.UserContext(), actor(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "user created", u)
	})

	r.Patch("/:id/restore", admins, func(c *fiber.Ctx) error {
		u, err := svc.Restore(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "user restored", u)
	})

	update := func(c *fiber.Ctx) error {
		var in services.UserInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		u, err := svc.Update(c.UserContext(), actor(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "user updated", u)
	}
	r.Put("/:id", update)
	r.Patch("/:id", update)

	r.Delete("/:id", admins, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "user deleted", nil)
	})
}

// SetupIdentityHook lets the identity provider push user changes instead of waiting for the poller.
func SetupIdentityHook(r fiber.Router, svc *services.UserService) {
	r.Post("/identity/users", func(c *fiber.Ctx) error {
		var recs []services.IdentityRecord
		if err := c.BodyParser(&recs); err != nil {
			return respondError(c, &services.ValidationError{Field: "body", Message: "expected an array of users"})
		}
		n, err := svc.UpsertIdentities(c.UserContext(), recs)
		if err != nil {
			return respondError(c, err)
		}
		log.Printf("✅ [SYNC] identity hook upserted %d user(s)", n)
		return utils.OK(c, "users synced", fiber.Map{"upserted": n})
	})
}
