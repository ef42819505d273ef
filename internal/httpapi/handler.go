// Package httpapi is the thin Fiber facade over the ObjectStore library
// surface: one route group for schema management, one for instance CRUD,
// routed dynamically by the schema name in the path rather than by a
// fixed set of per-entity handlers.
package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"objectstore/internal/apperr"
	"objectstore/internal/catalog"
	"objectstore/internal/instance"
	"objectstore/internal/objectstore"
)

// Handler binds every route to one ObjectStore instance.
type Handler struct {
	store *objectstore.ObjectStore
}

// NewHandler constructs a Handler bound to store.
func NewHandler(store *objectstore.ObjectStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes wires the schema and instance route groups onto app.
func RegisterRoutes(app *fiber.App, h *Handler) {
	schemas := app.Group("/schemas")
	schemas.Post("/", h.CreateSchema)
	schemas.Get("/", h.ListSchemas)
	schemas.Get("/:name", h.GetSchema)
	schemas.Put("/:name", h.UpdateSchema)
	schemas.Delete("/:name", h.DeleteSchema)

	instances := app.Group("/instances/:schema")
	instances.Post("/", h.CreateInstance)
	instances.Post("/bulk", h.CreateInstances)
	instances.Post("/upsert", h.UpsertInstances)
	instances.Get("/", h.QueryInstances)
	instances.Get("/:id", h.GetInstance)
	instances.Put("/:id", h.UpdateInstance)
	instances.Delete("/:id", h.DeleteInstance)
}

func respondError(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(fiber.Map{"error": appErr})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": apperr.New(apperr.Database, "unexpected error", err),
	})
}

// --- Schema handlers ---

func (h *Handler) CreateSchema(c *fiber.Ctx) error {
	var req catalog.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.New(apperr.Serialization, "invalid request body", err))
	}
	schema, err := h.store.CreateSchema(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": schema})
}

func (h *Handler) GetSchema(c *fiber.Ctx) error {
	schema, err := h.store.GetSchema(c.Context(), c.Params("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": schema})
}

func (h *Handler) ListSchemas(c *fiber.Ctx) error {
	schemas, err := h.store.ListSchemas(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	if schemas == nil {
		schemas = []*catalog.Schema{}
	}
	return c.JSON(fiber.Map{"data": schemas})
}

func (h *Handler) UpdateSchema(c *fiber.Ctx) error {
	var upd catalog.UpdateRequest
	if err := c.BodyParser(&upd); err != nil {
		return respondError(c, apperr.New(apperr.Serialization, "invalid request body", err))
	}
	schema, err := h.store.UpdateSchema(c.Context(), c.Params("name"), upd)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": schema})
}

func (h *Handler) DeleteSchema(c *fiber.Ctx) error {
	if err := h.store.DeleteSchema(c.Context(), c.Params("name")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"name": c.Params("name")}})
}

// --- Instance handlers ---

func (h *Handler) CreateInstance(c *fiber.Ctx) error {
	props, err := parseProperties(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := h.store.CreateInstance(c.Context(), c.Params("schema"), props)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

func (h *Handler) GetInstance(c *fiber.Ctx) error {
	inst, err := h.store.GetInstance(c.Context(), c.Params("schema"), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": inst})
}

func (h *Handler) QueryInstances(c *fiber.Ctx) error {
	filters := map[string]any{}
	for key, vals := range c.Queries() {
		if key == "limit" || key == "offset" {
			continue
		}
		filters[key] = vals
	}
	f := instance.SimpleFilter{
		SchemaName: c.Params("schema"),
		Filters:    filters,
		Limit:      c.QueryInt("limit", 50),
		Offset:     c.QueryInt("offset", 0),
	}
	rows, total, err := h.store.QueryInstances(c.Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	if rows == nil {
		rows = []*instance.Instance{}
	}
	return c.JSON(fiber.Map{"data": rows, "meta": fiber.Map{"total": total}})
}

func (h *Handler) UpdateInstance(c *fiber.Ctx) error {
	props, err := parseProperties(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.store.UpdateInstance(c.Context(), c.Params("schema"), c.Params("id"), props); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id")}})
}

func (h *Handler) DeleteInstance(c *fiber.Ctx) error {
	if err := h.store.DeleteInstance(c.Context(), c.Params("schema"), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": c.Params("id")}})
}

func (h *Handler) CreateInstances(c *fiber.Ctx) error {
	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, apperr.New(apperr.Serialization, "invalid request body", err))
	}
	n, err := h.store.CreateInstances(c.Context(), c.Params("schema"), body.Rows)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"rowsAffected": n}})
}

func (h *Handler) UpsertInstances(c *fiber.Ctx) error {
	var body struct {
		Rows         []map[string]any `json:"rows"`
		ConflictCols []string         `json:"conflictCols"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, apperr.New(apperr.Serialization, "invalid request body", err))
	}
	n, err := h.store.UpsertInstances(c.Context(), c.Params("schema"), body.Rows, body.ConflictCols)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"rowsAffected": n}})
}

func parseProperties(c *fiber.Ctx) (map[string]any, error) {
	return instance.ParseProperties(c.Body())
}
