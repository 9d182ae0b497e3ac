package handlers

import (
	"github.com/gofiber/fiber/v2"

	"loro-platform/middleware"
	"loro-platform/services"
	"loro-platform/utils"
)

func SetupAssetRoutes(r fiber.Router, svc *services.AssetService) {
	writers := middleware.RequireRoles(managers...)

	r.Post("/", writers, func(c *fiber.Ctx) error {
		var in services.AssetInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		a, err := svc.Create(c.UserContext(), actor(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "asset created", a)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		f := services.AssetFilter{OwnerID: c.Query("ownerId"), BranchID: c.Query("branchId"), Search: c.Query("q")}
		list, total, err := svc.List(c.UserContext(), actor(c), f, p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "assets retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/user/:userId", func(c *fiber.Ctx) error {
		list, err := svc.ForUser(c.UserContext(), actor(c), c.Params("userId"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "assets retrieved", list)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		a, err := svc.Get(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "asset retrieved", a)
	})

	r.Patch("/:id/restore", writers, func(c *fiber.Ctx) error {
		a, err := svc.Restore(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "asset restored", a)
	})

	update := func(c *fiber.Ctx) error {
		var in services.AssetInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		a, err := svc.Update(c.UserContext(), actor(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "asset updated", a)
	}
	r.Put("/:id", writers, update)
	r.Patch("/:id", writers, update)

	r.Delete("/:id", writers, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "asset deleted", nil)
	})
}
