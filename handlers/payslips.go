package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"loro-platform/middleware"
	"loro-platform/services"
	"loro-platform/utils"
)

func formDate(c *fiber.Ctx, key string) (time.Time, error) {
	raw := strings.TrimSpace(c.FormValue(key))
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &services.ValidationError{Field: key, Message: "must be a date (yyyy-mm-dd)"}
}

func formDecimal(c *fiber.Ctx, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.FormValue(key)))
	if err != nil {
		return decimal.Zero, &services.ValidationError{Field: key, Message: "must be a decimal amount"}
	}
	return d, nil
}

func parsePayslipForm(c *fiber.Ctx) (services.PayslipInput, error) {
	in := services.PayslipInput{UserID: strings.TrimSpace(c.FormValue("userId")), Currency: c.FormValue("currency")}
	var err error
	if in.PeriodStart, err = formDate(c, "periodStart"); err != nil {
		return in, err
	}
	if in.PeriodEnd, err = formDate(c, "periodEnd"); err != nil {
		return in, err
	}
	if in.GrossPay, err = formDecimal(c, "grossPay"); err != nil {
		return in, err
	}
	if in.Deductions, err = formDecimal(c, "deductions"); err != nil {
		return in, err
	}
	if in.NetPay, err = formDecimal(c, "netPay"); err != nil {
		return in, err
	}
	return in, utils.ValidateStruct(in)
}

func SetupPayslipRoutes(r fiber.Router, svc *services.PayslipService) {
	uploaders := middleware.RequireRoles(services.PeopleAdmins...)

	r.Post("/", uploaders, func(c *fiber.Ctx) error {
		in, err := parsePayslipForm(c)
		if err != nil {
			return respondError(c, err)
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return respondError(c, &services.ValidationError{Field: "file", Message: "is required"})
		}
		f, err := fh.Open()
		if err != nil {
			return respondError(c, err)
		}
		defer f.Close()

		p, err := svc.Upload(c.UserContext(), actor(c), in, services.PayslipFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
		if err != nil {
			return respondError(c, err)
		}
		return utils.Created(c, "payslip uploaded", p)
	})

	r.Get("/me", func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		a := actor(c)
		list, total, err := svc.ListForUser(c.UserContext(), a, a.UserID, p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "payslips retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/user/:userId", uploaders, func(c *fiber.Ctx) error {
		p := utils.PageFromQuery(c)
		list, total, err := svc.ListForUser(c.UserContext(), actor(c), c.Params("userId"), p.Page, p.Limit)
		if err != nil {
			return respondError(c, err)
		}
		return utils.List(c, "payslips retrieved", list, utils.NewMeta(p, total))
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		view, err := svc.Get(c.UserContext(), actor(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "payslip retrieved", view)
	})

	r.Delete("/:id", uploaders, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), actor(c), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return utils.OK(c, "payslip deleted", nil)
	})
}
