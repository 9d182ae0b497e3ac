package handlers

import (
	"github.com/gofiber/fiber/v2"

	"loro-platform/middleware"
	"loro-platform/models"
	"loro-platform/services"
	"loro-platform/utils"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft pending_internal pending_client negotiation approved rejected sourcing packing in_fulfillment completed cancelled"`
}

func SetupShopRoutes(r fiber.Router, svc *services.ShopService) {
	writers := middleware.RequireRoles(managers...)

	// products
	r.Get("/categories", func(c *fiber.Ctx) error {
		cats, err := svc.Categories(c.UserContext(), actor(c))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "categories retrieved", cats)
	})

	listProducts := func(specials bool) fiber.Handler {
		return func(c *fiber.Ctx) error {
			p := utils.PageFromQuery(c)
			f := services.ProductFilter{Category: c.Query("category"), Search: c.Query("q"), OnlySpecials: specials}
			list, total, err := svc.ListProducts(c.UserContext(), actor(c), f, p.Page, p.Limit)
			if err != nil {
				return respondError(c, err)
			}
			return utils.List(c, "products retrieved", list, utils.NewMeta(p, total))
		}
	}
	r.Get("/products", listProducts(false))
	r.Get("/specials", listProducts(true))

	r.Get("/products/:id", func(c *fiber.Ctx) error {
		p, err := svc.GetProduct(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "product retrieved", p)
	})

	r.Post("/products", writers, func(c *fiber.Ctx) error {
		var in services.ProductInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		p, err := svc.CreateProduct(c.UserContext(), actor(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "product created", p)
	})

	updateProduct := func(c *fiber.Ctx) error {
		var in services.ProductInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		p, err := svc.UpdateProduct(c.UserContext(), actor(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "product updated", p)
	}
	r.Put("/products/:id", writers, updateProduct)
	r.Patch("/products/:id", writers, updateProduct)

	r.Delete("/products/:id", writers, func(c *fiber.Ctx) error {
		if err := svc.DeleteProduct(c.UserContext(), actor(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "product deleted", nil)
	})

	// quotations
	r.Post("/quotations", func(c *fiber.Ctx) error {
		var in services.CheckoutInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		q, err := svc.Checkout(c.UserContext(), actor(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "quotation created", q)
	})

	r.Get("/quotations", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		f := services.QuotationFilter{Status: c.Query("status"), PlacedByID: c.Query("placedById")}
		list, total, err := svc.ListQuotations(c.UserContext(), actor(c), f, p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "quotations retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/quotations/:id", func(c *fiber.Ctx) error {
		q, err := svc.GetQuotation(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "quotation retrieved", q)
	})

	r.Patch("/quotations/:id/status", func(c *fiber.Ctx) error {
		var req statusRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
		q, err := svc.UpdateStatus(c.UserContext(), actor(c), c.Params("id"), models.QuotationStatus(req.Status))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "quotation status updated", q)
	})

	r.Post("/quotations/:id/send", func(c *fiber.Ctx) error {
		q, err := svc.Send(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "quotation sent", q)
	})
}
