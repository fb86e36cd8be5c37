package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tenantsync/internal/document"
)

func TestMemorySource_CreateAssignsIDs(t *testing.T) {
	src := NewMemorySource(nil)
	ctx := context.Background()

	id1, err := src.Create(ctx, "rule_label", document.Object{"name": document.String("a")})
	require.NoError(t, err)
	id2, err := src.Create(ctx, "rule_label", document.Object{"name": document.String("b")})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	items, err := src.List(ctx, "rule_label")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, document.Num(id1), items[0]["id"])
}

func TestMemorySource_CreateConflictsOnName(t *testing.T) {
	src := NewMemorySource(nil)
	ctx := context.Background()

	_, err := src.Create(ctx, "rule_label", document.Object{"name": document.String("dup")})
	require.NoError(t, err)

	_, err = src.Create(ctx, "rule_label", document.Object{"name": document.String("dup")})
	assert.True(t, IsConflict(err))
}

func TestMemorySource_UpdatePreservesID(t *testing.T) {
	src := NewMemorySource(nil)
	ctx := context.Background()

	id, err := src.Create(ctx, "rule_label", document.Object{"name": document.String("a")})
	require.NoError(t, err)

	require.NoError(t, src.Update(ctx, "rule_label", id, document.Object{"name": document.String("a2")}))

	items, err := src.List(ctx, "rule_label")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, document.Num(id), items[0]["id"])
	assert.Equal(t, document.String("a2"), items[0]["name"])
}

func TestMemorySource_UpdateUnknownID(t *testing.T) {
	src := NewMemorySource(nil)
	err := src.Update(context.Background(), "rule_label", "404", document.Object{})
	assert.Error(t, err)
	assert.False(t, IsConflict(err))
}

func TestMemorySource_ListReturnsCopies(t *testing.T) {
	src := NewMemorySource(nil)
	ctx := context.Background()
	src.Load("rule_label", []document.Object{{"name": document.String("a")}})

	items, err := src.List(ctx, "rule_label")
	require.NoError(t, err)
	items[0]["name"] = document.String("mutated")

	again, err := src.List(ctx, "rule_label")
	require.NoError(t, err)
	assert.Equal(t, document.String("a"), again[0]["name"])
}

func TestErrorClassification(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(assert.AnError))
	assert.True(t, IsAuthError(NewError(KindUnauthorized, "user", "denied")))
	assert.True(t, IsAuthError(NewError(KindNotEntitled, "dlp_engine", "not subscribed")))
	assert.True(t, IsFatal(NewError(KindFatal, "", "bad credentials")))
	assert.False(t, IsFatal(NewError(KindTransient, "", "timeout")))
}
