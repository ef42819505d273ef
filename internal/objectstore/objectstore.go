// Package objectstore assembles the catalog, instance engine, and bulk
// transactor into the single library surface described by the external
// interfaces section of the design: a schema-driven object store layered
// over one PostgreSQL connection pool.
package objectstore

import (
	"context"
	"fmt"

	"objectstore/internal/bulk"
	"objectstore/internal/catalog"
	"objectstore/internal/condition"
	"objectstore/internal/config"
	"objectstore/internal/instance"
	"objectstore/internal/instrument"
	"objectstore/internal/store"
)

// ObjectStore is the top-level facade. It owns no state beyond its
// collaborators and the pool/config it was built from; there are no
// process-wide singletons.
type ObjectStore struct {
	cfg          *config.Config
	store        *store.Store
	catalog      *catalog.Catalog
	engine       *instance.Engine
	bulk         *bulk.Transactor
	events       *instrument.EventBuffer
	instrumenter instrument.Instrumenter
}

// ctx binds the store's instrumenter onto c, so every facade call reaches
// the catalog and instance engine with tracing already wired in.
func (o *ObjectStore) ctx(c context.Context) context.Context {
	return instrument.WithInstrumenter(c, o.instrumenter)
}

// autoTimestamps folds the independent created_at/updated_at toggles into
// the single bool the catalog, engine, and bulk transactor accept. Both
// must be enabled for either auto-column to be considered "on"; a store
// that manages one but not the other is not a configuration this design
// supports, since every generated table carries both columns together.
func autoTimestamps(cols config.AutoColumnsConfig) bool {
	return cols.CreatedAt && cols.UpdatedAt
}

// New opens a pool against cfg.DatabaseURL, verifies connectivity, and
// builds an ObjectStore bound to it.
func New(ctx context.Context, cfg *config.Config) (*ObjectStore, error) {
	st, err := store.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return FromPool(ctx, st, cfg)
}

// FromPool builds an ObjectStore around an already-open store, for callers
// that manage the pool's lifecycle themselves (tests, multi-tenant hosts).
func FromPool(ctx context.Context, st *store.Store, cfg *config.Config) (*ObjectStore, error) {
	metadataTable := cfg.MetadataTable
	if metadataTable == "" {
		metadataTable = "__schema"
	}

	cat := catalog.New(st, metadataTable, cfg.SoftDelete, cfg.AutoColumns.ID)
	if err := cat.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure metadata table: %w", err)
	}

	autoTS := autoTimestamps(cfg.AutoColumns)
	eng := instance.New(st, cat, cfg.SoftDelete, cfg.AutoColumns.ID, autoTS)
	txr := bulk.New(st, cat, cfg.SoftDelete, cfg.AutoColumns.ID, autoTS)

	events := instrument.NewEventBuffer(st.Pool, 100, 2000)
	if err := events.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure events table: %w", err)
	}

	return &ObjectStore{
		cfg:          cfg,
		store:        st,
		catalog:      cat,
		engine:       eng,
		bulk:         txr,
		events:       events,
		instrumenter: instrument.NewInstrumenter(events),
	}, nil
}

// Close stops the ambient event buffer and closes the underlying pool.
func (o *ObjectStore) Close() {
	if o.events != nil {
		o.events.Stop()
	}
	o.store.Pool.Close()
}

// Pool exposes the underlying *store.Store (whose Pool field is the
// connection pool), for callers building the
// ambient HTTP facade or CLI that need it directly (event inspection,
// health checks).
func (o *ObjectStore) Pool() *store.Store { return o.store }

// --- Catalog surface ---

func (o *ObjectStore) CreateSchema(ctx context.Context, req catalog.CreateRequest) (*catalog.Schema, error) {
	return o.catalog.CreateSchema(o.ctx(ctx), req)
}

func (o *ObjectStore) GetSchema(ctx context.Context, name string) (*catalog.Schema, error) {
	return o.catalog.GetSchema(o.ctx(ctx), name)
}

func (o *ObjectStore) GetSchemaByID(ctx context.Context, id string) (*catalog.Schema, error) {
	return o.catalog.GetSchemaByID(o.ctx(ctx), id)
}

func (o *ObjectStore) ListSchemas(ctx context.Context) ([]*catalog.Schema, error) {
	return o.catalog.ListSchemas(o.ctx(ctx))
}

func (o *ObjectStore) UpdateSchema(ctx context.Context, name string, upd catalog.UpdateRequest) (*catalog.Schema, error) {
	return o.catalog.UpdateSchema(o.ctx(ctx), name, upd)
}

func (o *ObjectStore) DeleteSchema(ctx context.Context, name string) error {
	return o.catalog.DeleteSchema(o.ctx(ctx), name)
}

// --- Instance surface ---

func (o *ObjectStore) CreateInstance(ctx context.Context, schemaName string, properties map[string]any) (string, error) {
	return o.engine.CreateInstance(o.ctx(ctx), schemaName, properties)
}

func (o *ObjectStore) GetInstance(ctx context.Context, schemaName, id string) (*instance.Instance, error) {
	return o.engine.GetInstance(o.ctx(ctx), schemaName, id)
}

func (o *ObjectStore) QueryInstances(ctx context.Context, f instance.SimpleFilter) ([]*instance.Instance, int, error) {
	return o.engine.QueryInstances(o.ctx(ctx), f)
}

func (o *ObjectStore) FilterInstances(ctx context.Context, schemaName string, req instance.FilterRequest) ([]*instance.Instance, int, error) {
	return o.engine.FilterInstances(o.ctx(ctx), schemaName, req)
}

func (o *ObjectStore) InstanceExists(ctx context.Context, f instance.SimpleFilter) (bool, error) {
	return o.engine.InstanceExists(o.ctx(ctx), f)
}

func (o *ObjectStore) UpdateInstance(ctx context.Context, schemaName, id string, properties map[string]any) error {
	return o.engine.UpdateInstance(o.ctx(ctx), schemaName, id, properties)
}

func (o *ObjectStore) DeleteInstance(ctx context.Context, schemaName, id string) error {
	return o.engine.DeleteInstance(o.ctx(ctx), schemaName, id)
}

// --- Bulk surface ---

func (o *ObjectStore) CreateInstances(ctx context.Context, schemaName string, propsList []map[string]any) (int64, error) {
	return o.bulk.CreateInstances(o.ctx(ctx), schemaName, propsList)
}

func (o *ObjectStore) UpsertInstances(ctx context.Context, schemaName string, propsList []map[string]any, conflictCols []string) (int64, error) {
	return o.bulk.UpsertInstances(o.ctx(ctx), schemaName, propsList, conflictCols)
}

func (o *ObjectStore) UpdateInstances(ctx context.Context, schemaName string, properties map[string]any, cond *condition.Expression) (int64, error) {
	return o.bulk.UpdateInstances(o.ctx(ctx), schemaName, properties, cond)
}

func (o *ObjectStore) DeleteInstances(ctx context.Context, schemaName string, cond *condition.Expression) (int64, error) {
	return o.bulk.DeleteInstances(o.ctx(ctx), schemaName, cond)
}
