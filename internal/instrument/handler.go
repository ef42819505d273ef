package instrument

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"objectstore/internal/store"
)

// EventHandler exposes REST endpoints for querying and emitting events.
type EventHandler struct {
	pool *pgxpool.Pool
}

// NewEventHandler creates an EventHandler backed by pool.
func NewEventHandler(pool *pgxpool.Pool) *EventHandler {
	return &EventHandler{pool: pool}
}

// Emit handles POST /_events — emits a custom business event.
func (h *EventHandler) Emit(c *fiber.Ctx) error {
	var body struct {
		Action   string         `json:"action"`
		Entity   string         `json:"entity"`
		RecordID string         `json:"recordId"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": fiber.Map{"code": "VALIDATION", "message": "invalid JSON body"}})
	}
	if body.Action == "" {
		return c.Status(422).JSON(fiber.Map{"error": fiber.Map{"code": "VALIDATION", "message": "action is required"}})
	}

	inst := GetInstrumenter(c.UserContext())
	inst.EmitBusinessEvent(c.UserContext(), body.Action, body.Entity, body.RecordID, body.Metadata)

	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}

// List handles GET /_events — list events with filters.
func (h *EventHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var conditions []string
	var args []any
	argIdx := 1

	for _, q := range []struct{ param, col string }{
		{"name", "name"}, {"entity", "entity"}, {"eventType", "event_type"}, {"traceId", "trace_id"}, {"status", "status"},
	} {
		if v := c.Query(q.param); v != "" {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", q.col, argIdx))
			args = append(args, v)
			argIdx++
		}
	}
	if v := c.Query("from"); v != "" {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, v)
		argIdx++
	}
	if v := c.Query("to"); v != "" {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, v)
		argIdx++
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.Query("perPage", "50"))
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 100 {
		perPage = 100
	}
	offset := (page - 1) * perPage

	orderBy := "created_at DESC"
	if c.Query("sort") == "created_at" {
		orderBy = "created_at ASC"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countRow, err := store.QueryRow(ctx, h.pool, "SELECT COUNT(*) AS count FROM _events"+whereClause, args...)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	total := toInt(countRow["count"])

	dataSQL := fmt.Sprintf(
		"SELECT id, trace_id, span_id, parent_span_id, event_type, name, entity, record_id, duration_ms, status, metadata, created_at FROM _events%s ORDER BY %s LIMIT $%d OFFSET $%d",
		whereClause, orderBy, argIdx, argIdx+1,
	)
	dataArgs := append(args, perPage, offset)
	rows, err := store.QueryRows(ctx, h.pool, dataSQL, dataArgs...)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	return c.JSON(fiber.Map{
		"data":       rows,
		"pagination": fiber.Map{"page": page, "perPage": perPage, "total": total},
	})
}

// GetTrace handles GET /_events/trace/:traceId — the full trace waterfall.
func (h *EventHandler) GetTrace(c *fiber.Ctx) error {
	ctx := c.UserContext()
	traceID := c.Params("traceId")
	if traceID == "" {
		return c.Status(422).JSON(fiber.Map{"error": fiber.Map{"code": "VALIDATION", "message": "traceId is required"}})
	}

	rows, err := store.QueryRows(ctx, h.pool,
		`SELECT id, trace_id, span_id, parent_span_id, event_type, name, entity, record_id, duration_ms, status, metadata, created_at
		 FROM _events WHERE trace_id = $1 ORDER BY created_at ASC`, traceID)
	if err != nil {
		return fmt.Errorf("get trace: %w", err)
	}
	if len(rows) == 0 {
		return c.Status(404).JSON(fiber.Map{"error": fiber.Map{"code": "NOT_FOUND", "message": "trace not found: " + traceID}})
	}

	type spanNode struct {
		data     map[string]any
		children []map[string]any
	}
	spanMap := make(map[string]*spanNode, len(rows))
	for _, row := range rows {
		spanID, _ := row["span_id"].(string)
		spanMap[spanID] = &spanNode{data: row, children: []map[string]any{}}
	}

	var rootSpan map[string]any
	for _, node := range spanMap {
		parentID, _ := node.data["parent_span_id"].(string)
		if parentID != "" {
			if parent, ok := spanMap[parentID]; ok {
				parent.children = append(parent.children, node.data)
			}
		} else {
			rootSpan = node.data
		}
	}
	for _, node := range spanMap {
		node.data["children"] = node.children
	}
	if rootSpan == nil && len(rows) > 0 {
		rootSpan = rows[0]
	}

	var totalDurationMs any
	if rootSpan != nil {
		totalDurationMs = rootSpan["duration_ms"]
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"traceId":         traceID,
			"rootSpan":        rootSpan,
			"spans":           rows,
			"totalDurationMs": totalDurationMs,
		},
	})
}

// GetStats handles GET /_events/stats — aggregate latency and error stats.
// Postgres-only, so percentile_cont is used directly rather than dispatched
// through a dialect abstraction.
func (h *EventHandler) GetStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var conditions []string
	var args []any
	argIdx := 1
	if v := c.Query("from"); v != "" {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, v)
		argIdx++
	}
	if v := c.Query("to"); v != "" {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, v)
		argIdx++
	}
	if v := c.Query("entity"); v != "" {
		conditions = append(conditions, fmt.Sprintf("entity = $%d", argIdx))
		args = append(args, v)
		argIdx++
	}
	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	totalSQL := fmt.Sprintf(
		`SELECT COUNT(*) AS total_events, AVG(duration_ms) AS avg_latency_ms,
		 PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY duration_ms) AS p95_latency_ms,
		 COUNT(*) FILTER (WHERE status = 'error') AS error_count
		 FROM _events%s`, whereClause)
	totalRow, err := store.QueryRow(ctx, h.pool, totalSQL, args...)
	if err != nil {
		return fmt.Errorf("event stats: %w", err)
	}
	totalEvents := toInt(totalRow["total_events"])
	errorCount := toInt(totalRow["error_count"])
	var errorRate float64
	if totalEvents > 0 {
		errorRate = float64(errorCount) / float64(totalEvents)
	}

	nameConditions := append(append([]string{}, conditions...), "duration_ms IS NOT NULL")
	byNameSQL := fmt.Sprintf(
		`SELECT name, COUNT(*) AS count, AVG(duration_ms) AS avg_duration_ms,
		 PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY duration_ms) AS p95_duration_ms,
		 COUNT(*) FILTER (WHERE status = 'error') AS error_count
		 FROM _events WHERE %s GROUP BY name ORDER BY count DESC`, strings.Join(nameConditions, " AND "))
	byNameRows, err := store.QueryRows(ctx, h.pool, byNameSQL, args...)
	if err != nil {
		return fmt.Errorf("event stats by name: %w", err)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"totalEvents":  totalEvents,
			"avgLatencyMs": totalRow["avg_latency_ms"],
			"p95LatencyMs": totalRow["p95_latency_ms"],
			"errorRate":    errorRate,
			"byName":       byNameRows,
		},
	})
}

func toInt(v any) int {
	switch val := v.(type) {
	case int:
		return val
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float64:
		return int(val)
	default:
		return 0
	}
}
