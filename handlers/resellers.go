package handlers

import (
	"github.com/gofiber/fiber/v2"

	"loro-platform/middleware"
	"loro-platform/services"
	"loro-platform/utils"
)

func SetupResellerRoutes(r fiber.Router, svc *services.ResellerService) {
	writers := middleware.RequireRoles(managers...)

	r.Post("/", writers, func(c *fiber.Ctx) error {
		var in services.ResellerInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		res, err := svc.Create(c.UserContext(), actor(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "reseller created", res)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		list, total, err := svc.List(c.UserContext(), actor(c), c.Query("status"), c.Query("q"), p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "resellers retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		res, err := svc.Get(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "reseller retrieved", res)
	})

	r.Patch("/:id/restore", writers, func(c *fiber.Ctx) error {
		res, err := svc.Restore(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "reseller restored", res)
	})

	update := func(c *fiber.Ctx) error {
		var in services.ResellerInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		res, err := svc.Update(c.UserContext(), actor(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "reseller updated", res)
	}
	r.Put("/:id", writers, update)
	r.Patch("/:id", writers, update)

	r.Delete("/:id", writers, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "reseller deleted", nil)
	})
}
