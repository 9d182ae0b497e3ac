// utils/response.go
package utils

import (
	"github.com/gofiber/fiber/v2"
)

// Meta describes a page of a list response.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewMeta computes TotalPages for a page of size limit.
func NewMeta(p Page, total int64) Meta {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

// OK writes {"message", "data"} with 200.
func OK(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{"message": message, "data": data})
}

// Created writes {"message", "data"} with 201.
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message, "data": data})
}

// List writes a paginated {"message", "data", "meta"} body.
func List(c *fiber.Ctx, message string, data interface{}, meta Meta) error {
	return c.JSON(fiber.Map{"message": message, "data": data, "meta": meta})
}

// Fail writes the error envelope {"message", "data": null} with status.
func Fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message, "data": nil})
}

// FailWithFields is Fail plus per-field validation messages.
func FailWithFields(c *fiber.Ctx, status int, message string, fields map[string]string) error {
	return c.Status(status).JSON(fiber.Map{"message": message, "data": nil, "errors": fields})
}
