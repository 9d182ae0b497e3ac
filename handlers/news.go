package handlers

import (
	"github.com/gofiber/fiber/v2"

	"loro-platform/middleware"
	"loro-platform/services"
	"loro-platform/utils"
)

func SetupNewsRoutes(r fiber.Router, svc *services.NewsService) {
	editors := middleware.RequireRoles(managers...)

	r.Get("/", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		list, total, err := svc.ListPublished(c.UserContext(), actor(c), c.Query("category"), p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "news retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/manage", editors, func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		list, total, err := svc.ListAll(c.UserContext(), actor(c), c.Query("status"), p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "news retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/:idOrSlug", func(c *fiber.Ctx) error {
		n, err := svc.Get(c.UserContext(), actor(c), c.Params("idOrSlug"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "news retrieved", n)
	})

	r.Post("/", editors, func(c *fiber.Ctx) error {
		var in services.NewsInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		n, err := svc.Create(c.UserContext(), actor(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "news created", n)
	})

	r.Patch("/:id/restore", editors, func(c *fiber.Ctx) error {
		n, err := svc.Restore(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "news restored", n)
	})

	update := func(c *fiber.Ctx) error {
		var in services.NewsInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		n, err := svc.Update(c.UserContext(), actor(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "news updated", n)
	}
	r.Put("/:id", editors, update)
	r.Patch("/:id", editors, update)

	r.Delete("/:id", editors, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "news deleted", nil)
	})
}
