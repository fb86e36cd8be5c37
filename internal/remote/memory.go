package remote

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/roach88/tenantsync/internal/document"
)

// MemorySource is an in-memory Source over a preloaded resource inventory.
// It backs offline tenants (inventory loaded from a file) and tests. Create
// assigns sequential numeric ids and rejects same-named duplicates with a
// conflict, matching the behavior of the real product APIs.
type MemorySource struct {
	mu     sync.Mutex
	data   map[string][]document.Object
	nextID int64

	// nameFields overrides the natural-key field per type; "name" otherwise.
	nameFields map[string]string
}

// NewMemorySource returns an empty source. nameFields may be nil.
func NewMemorySource(nameFields map[string]string) *MemorySource {
	return &MemorySource{
		data:       make(map[string][]document.Object),
		nextID:     1000,
		nameFields: nameFields,
	}
}

// Load replaces the inventory of one resource type.
func (s *MemorySource) Load(resourceType string, items []document.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]document.Object, len(items))
	for i, item := range items {
		copied[i] = document.Clone(item).(document.Object)
	}
	s.data[resourceType] = copied
}

// List returns a deep copy of the type's inventory.
func (s *MemorySource) List(ctx context.Context, resourceType string) ([]document.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.data[resourceType]
	out := make([]document.Object, len(items))
	for i, item := range items {
		out[i] = document.Clone(item).(document.Object)
	}
	return out, nil
}

// Create stores a new resource and returns its assigned id.
func (s *MemorySource) Create(ctx context.Context, resourceType string, payload document.Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nameField := s.nameField(resourceType)
	name := document.NaturalKey(payload, nameField)
	if name != "" {
		for _, existing := range s.data[resourceType] {
			if document.NaturalKey(existing, nameField) == name {
				return "", NewError(KindConflict, resourceType, fmt.Sprintf("resource %q already exists", name))
			}
		}
	}

	s.nextID++
	id := strconv.FormatInt(s.nextID, 10)
	stored := document.Clone(payload).(document.Object)
	stored["id"] = document.Num(id)
	s.data[resourceType] = append(s.data[resourceType], stored)
	return id, nil
}

// Update overwrites the resource with the given id, preserving the id field.
func (s *MemorySource) Update(ctx context.Context, resourceType, id string, payload document.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.data[resourceType] {
		if document.NaturalKey(existing, "id") != id {
			continue
		}
		stored := document.Clone(payload).(document.Object)
		stored["id"] = existing["id"]
		s.data[resourceType][i] = stored
		return nil
	}
	return NewError(KindTransient, resourceType, fmt.Sprintf("resource %s not found", id))
}

func (s *MemorySource) nameField(resourceType string) string {
	if f, ok := s.nameFields[resourceType]; ok {
		return f
	}
	return "name"
}
