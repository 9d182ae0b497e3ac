package handlers

import (
	"github.com/gofiber/fiber/v2"

	"loro-platform/middleware"
	"loro-platform/models"
	"loro-platform/services"
	"loro-platform/utils"
)

type decisionRequest struct {
	Comments        string `json:"comments" validate:"max=2000"`
	RejectionReason string `json:"rejectionReason" validate:"max=2000"`
}

func SetupLeaveRoutes(r fiber.Router, svc *services.LeaveService) {
	approvers := middleware.RequireRoles(models.RoleOwner, models.RoleAdmin, models.RoleManager, models.RoleSupervisor, models.RoleHR)

	r.Post("/", func(c *fiber.Ctx) error {
		var in services.LeaveInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		l, err := svc.Create(c.UserContext(), actor(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "leave requested", l)
	})

	r.Get("/", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		from, err := queryTime(c, "from")
		if err != nil {
			return respondError(c, err)
		}
		to, err := queryTime(c, "to")
		if err != nil {
			return respondError(c, err)
		}
		f := services.LeaveFilter{
			Status:    c.Query("status"),
			OwnerID:   c.Query("ownerId"),
			LeaveType: c.Query("leaveType"),
			From:      from,
			To:        to,
		}
		list, total, err := svc.List(c.UserContext(), actor(c), f, p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "leave retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/me", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		a := actor(c)
		list, total, err := svc.List(c.UserContext(), a, services.LeaveFilter{OwnerID: a.UserID, Status: c.Query("status")}, p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "leave retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		l, err := svc.Get(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "leave retrieved", l)
	})

	r.Put("/:id", func(c *fiber.Ctx) error {
		var in services.LeaveInput
		if err := bind(c, &in); err != nil {
			return respondError(c, err)
		}
		l, err := svc.Update(c.UserContext(), actor(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "leave updated", l)
	})

	r.Patch("/:id/approve", approvers, func(c *fiber.Ctx) error {
		var req decisionRequest
		if len(c.Body()) > 0 {
			if err := bind(c, &req); err != nil {
				return respondError(c, err)
			}
		}
		l, err := svc.Approve(c.UserContext(), actor(c), c.Params("id"), req.Comments)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "leave approved", l)
	})

	r.Patch("/:id/reject", approvers, func(c *fiber.Ctx) error {
		var req decisionRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
		l, err := svc.Reject(c.UserContext(), actor(c), c.Params("id"), req.RejectionReason)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "leave rejected", l)
	})

	r.Patch("/:id/cancel", func(c *fiber.Ctx) error {
		l, err := svc.Cancel(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "leave cancelled", l)
	})

	r.Patch("/:id/restore", approvers, func(c *fiber.Ctx) error {
		l, err := svc.Restore(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "leave restored", l)
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "leave deleted", nil)
	})
}
