package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/tenantsync/internal/document"
	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/store"
)

// Entry is one resource inside a snapshot: the remote identifier, the
// display name, and the full payload.
type Entry struct {
	RemoteID string          `json:"id"`
	Name     string          `json:"name"`
	Payload  document.Object `json:"config"`
}

// Contents maps resource type to the entries captured for it.
type Contents map[string][]Entry

// Count returns the total number of entries.
func (c Contents) Count() int {
	n := 0
	for _, entries := range c {
		n += len(entries)
	}
	return n
}

// Service captures, lists, and diffs snapshots. DB-only: no remote calls.
type Service struct {
	store *store.Store
}

// New creates a snapshot service.
func New(s *store.Store) *Service {
	return &Service{store: s}
}

// Save captures the current non-tombstoned cache contents for a
// tenant+product as an immutable snapshot. An empty name defaults to a
// timestamp.
func (s *Service) Save(ctx context.Context, tenant string, product registry.Product, name, comment string) (store.SnapshotMeta, error) {
	contents, err := s.Live(ctx, tenant, product)
	if err != nil {
		return store.SnapshotMeta{}, err
	}

	now := time.Now().UTC()
	if name == "" {
		name = now.Format("2006-01-02T15-04-05")
	}

	body, err := json.Marshal(contents)
	if err != nil {
		return store.SnapshotMeta{}, fmt.Errorf("save snapshot: marshal: %w", err)
	}

	meta := store.SnapshotMeta{
		Tenant:        tenant,
		Product:       string(product),
		Name:          name,
		Comment:       comment,
		CreatedAt:     now,
		ResourceCount: contents.Count(),
	}
	if err := s.store.SaveSnapshot(ctx, &meta, body); err != nil {
		return store.SnapshotMeta{}, err
	}
	return meta, nil
}

// List returns snapshot metadata for a tenant+product, newest first.
func (s *Service) List(ctx context.Context, tenant string, product registry.Product) ([]store.SnapshotMeta, error) {
	return s.store.ListSnapshots(ctx, tenant, string(product))
}

// Delete removes a snapshot as a whole unit.
func (s *Service) Delete(ctx context.Context, tenant string, product registry.Product, name string) error {
	return s.store.DeleteSnapshot(ctx, tenant, string(product), name)
}

// Get loads a snapshot's metadata and contents by name.
func (s *Service) Get(ctx context.Context, tenant string, product registry.Product, name string) (store.SnapshotMeta, Contents, error) {
	meta, body, err := s.store.GetSnapshot(ctx, tenant, string(product), name)
	if err != nil {
		return store.SnapshotMeta{}, nil, err
	}
	var contents Contents
	if err := json.Unmarshal(body, &contents); err != nil {
		return store.SnapshotMeta{}, nil, fmt.Errorf("snapshot %q: decode body: %w", name, err)
	}
	return meta, contents, nil
}

// Live builds a snapshot-shaped view over the current cache without
// materializing a snapshot row. Diffing a stored snapshot against "current
// DB" is Diff(stored, Live(...)).
func (s *Service) Live(ctx context.Context, tenant string, product registry.Product) (Contents, error) {
	rows, err := s.store.QueryResources(ctx, tenant, string(product), store.ResourceFilter{})
	if err != nil {
		return nil, fmt.Errorf("live snapshot: %w", err)
	}

	contents := make(Contents)
	for _, r := range rows {
		contents[r.ResourceType] = append(contents[r.ResourceType], Entry{
			RemoteID: r.RemoteID,
			Name:     r.Name,
			Payload:  r.Payload,
		})
	}
	return contents, nil
}
