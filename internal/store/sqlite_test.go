package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDocumentStore_SaveAndGet(t *testing.T) {
	// Given an in-memory store with two documents
	s, err := NewSQLiteDocumentStore("")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	docs := []*Document{
		{ID: "doc-1", TenantID: "acme", Name: "Handbook", FileName: "handbook.pdf", PageCount: 42},
		{ID: "doc-2", TenantID: "acme", Name: "Policy", FileName: "policy.pdf", PageCount: 7},
	}
	require.NoError(t, s.SaveDocuments(ctx, docs))

	// When fetching both plus a missing id
	got, err := s.GetDocuments(ctx, "acme", []string{"doc-1", "doc-2", "doc-404"})
	require.NoError(t, err)

	// Then missing ids are silently absent
	require.Len(t, got, 2)
	byID := map[string]*Document{}
	for _, d := range got {
		byID[d.ID] = d
	}
	assert.Equal(t, "Handbook", byID["doc-1"].Name)
	assert.Equal(t, 7, byID["doc-2"].PageCount)
	assert.False(t, byID["doc-1"].CreatedAt.IsZero())
}

func TestSQLiteDocumentStore_TenantIsolation(t *testing.T) {
	s, err := NewSQLiteDocumentStore("")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveDocuments(ctx, []*Document{
		{ID: "doc-1", TenantID: "acme", Name: "Handbook"},
	}))

	// A different tenant must not see the document
	got, err := s.GetDocuments(ctx, "globex", []string{"doc-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteDocumentStore_Upsert(t *testing.T) {
	s, err := NewSQLiteDocumentStore("")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveDocuments(ctx, []*Document{
		{ID: "doc-1", TenantID: "acme", Name: "Draft", PageCount: 1},
	}))
	require.NoError(t, s.SaveDocuments(ctx, []*Document{
		{ID: "doc-1", TenantID: "acme", Name: "Final", PageCount: 3},
	}))

	got, err := s.GetDocuments(ctx, "acme", []string{"doc-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Final", got[0].Name)
	assert.Equal(t, 3, got[0].PageCount)
}

func TestSQLiteDocumentStore_Delete(t *testing.T) {
	s, err := NewSQLiteDocumentStore("")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveDocuments(ctx, []*Document{
		{ID: "doc-1", TenantID: "acme", Name: "Handbook"},
	}))
	require.NoError(t, s.DeleteDocument(ctx, "acme", "doc-1"))

	got, err := s.GetDocuments(ctx, "acme", []string{"doc-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteDocumentStore_ListNewestFirst(t *testing.T) {
	s, err := NewSQLiteDocumentStore("")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.SaveDocuments(ctx, []*Document{
		{ID: "old", TenantID: "acme", Name: "Old", CreatedAt: base},
		{ID: "new", TenantID: "acme", Name: "New", CreatedAt: base.Add(time.Minute)},
	}))

	got, err := s.ListDocuments(ctx, "acme", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)

	limited, err := s.ListDocuments(ctx, "acme", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteDocumentStore_PersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")
	ctx := context.Background()

	s, err := NewSQLiteDocumentStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveDocuments(ctx, []*Document{
		{ID: "doc-1", TenantID: "acme", Name: "Handbook"},
	}))
	require.NoError(t, s.Close())

	// Reopen and verify
	s2, err := NewSQLiteDocumentStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetDocuments(ctx, "acme", []string{"doc-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Handbook", got[0].Name)
}

func TestSQLiteDocumentStore_ClosedErrors(t *testing.T) {
	s, err := NewSQLiteDocumentStore("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	_, err = s.GetDocuments(context.Background(), "acme", []string{"doc-1"})
	assert.Error(t, err)
}
