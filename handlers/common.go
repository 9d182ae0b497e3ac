package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"loro-platform/middleware"
	"loro-platform/services"
	"loro-platform/utils"
)

// respondError maps service errors onto HTTP statuses and the error envelope.
func respondError(c *fiber.Ctx, err error) error {
	var fields utils.FieldErrors
	var verr *services.ValidationError
	switch {
	case errors.As(err, &fields):
		return utils.FailWithFields(c, fiber.StatusBadRequest, "validation failed", fields)
	case errors.As(err, &verr):
		return utils.FailWithFields(c, fiber.StatusBadRequest, verr.Error(), map[string]string{verr.Field: verr.Message})
	case errors.Is(err, services.ErrValidation):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return utils.Fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInvalidTransition):
		return utils.Fail(c, fiber.StatusConflict, err.Error())
	}

	log.WithField("path", c.Path()).Errorf("❌ [HTTP] unhandled error: %v", err)
	return utils.Fail(c, fiber.StatusInternalServerError, "internal server error")
}

// ErrorHandler is the fiber-level handler for framework errors and recovered panics.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.Fail(c, fe.Code, fe.Message)
	}
	return respondError(c, err)
}

// bind parses the JSON body into dst and validates it.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return &services.ValidationError{Field: "body", Message: "malformed request body"}
	}
	return utils.ValidateStruct(dst)
}

func actor(c *fiber.Ctx) services.Actor {
	return middleware.FromCtx(c).Actor()
}

// queryTime reads an RFC 3339 or yyyy-mm-dd query parameter.
func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &services.ValidationError{Field: key, Message: "must be a date (yyyy-mm-dd) or RFC 3339 timestamp"}
}

// branchFilter returns ?branchId= when set.
func branchFilter(c *fiber.Ctx) *string {
	if b := strings.TrimSpace(c.Query("branchId")); b != "" {
		return &b
	}
	return nil
}
