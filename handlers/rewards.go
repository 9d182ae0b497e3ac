package handlers

import (
	"github.com/gofiber/fiber/v2"

	"loro-platform/middleware"
	"loro-platform/models"
	"loro-platform/services"
	"loro-platform/utils"
)

type awardRequest struct {
	UserID     string                 `json:"userId" validate:"required"`
	Amount     int64                  `json:"amount" validate:"required,gt=0"`
	SourceType string                 `json:"sourceType" validate:"required,max=32"`
	SourceID   string                 `json:"sourceId" validate:"max=64"`
	Details    map[string]interface{} `json:"details"`
}

func SetupRewardsRoutes(r fiber.Router, svc *services.RewardsService) {
	r.Get("/me", func(c *fiber.Ctx) error {
		view, err := svc.GetUserRewards(c.UserContext(), actor(c).UserID)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "rewards retrieved", view)
	})

	r.Get("/me/history", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		txns, total, err := svc.XPHistory(c.UserContext(), actor(c).UserID, p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "xp history retrieved", txns, utils.NewMeta(p, total))
	})

	r.Get("/me/achievements", func(c *fiber.Ctx) error {
		list, err := svc.Achievements(c.UserContext(), actor(c).UserID)
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "achievements retrieved", list)
	})

	r.Get("/leaderboard", func(c *fiber.Ctx) error {
		board, err := svc.Leaderboard(c.UserContext(), actor(c).OrganisationID, branchFilter(c))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "leaderboard retrieved", board)
	})

	r.Get("/levels", func(c *fiber.Ctx) error {
		return utils.OK(c, "level table", fiber.Map{"levels": services.Levels, "ranks": services.Ranks})
	})

	r.Get("/users/:userId", func(c *fiber.Ctx) error {
		view, err := svc.GetUserRewards(c.UserContext(), c.Params("userId"))
		if err != nil {
			return respondError(c, err)
		}
		if view.OrganisationID != actor(c).OrganisationID {
			return respondError(c, services.ErrNotFound)
		}
		return utils.OK(c, "rewards retrieved", view)
	})

	// manual awards by managers, e.g. for work tracked outside the platform
	r.Post("/award", middleware.RequireRoles(models.RoleOwner, models.RoleAdmin, models.RoleManager, models.RoleSupervisor), func(c *fiber.Ctx) error {
		var req awardRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
		a := actor(c)
		res, err := svc.AwardXP(c.UserContext(), services.AwardXPInput{
			UserID:         req.UserID,
			OrganisationID: a.OrganisationID,
			Amount:         req.Amount,
			Source:         services.XPSource{Type: req.SourceType, ID: req.SourceID, Details: req.Details},
		})
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "xp awarded", res)
	})
}
