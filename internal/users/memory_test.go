package users

import (
	"context"
	"testing"

	"github.com/cineverse/cineverse/backend/go-services/internal/models"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryCRUD(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	created, err := r.Create(ctx, &models.User{SubjectID: "user_1", Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())

	got, err := r.FindBySubject(ctx, "user_1")
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)

	updated, err := r.UpdateBySubject(ctx, "user_1", &models.Patch{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)
	require.Equal(t, "bob", updated.Username)
	require.Equal(t, created.ID, updated.ID)

	deleted, err := r.DeleteBySubject(ctx, "user_1")
	require.NoError(t, err)
	require.Equal(t, created.ID, deleted.ID)

	_, err = r.FindBySubject(ctx, "user_1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryDuplicateSubject(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	_, err := r.Create(ctx, &models.User{SubjectID: "user_1", Username: "alice"})
	require.NoError(t, err)

	_, err = r.Create(ctx, &models.User{SubjectID: "user_1", Username: "alice"})
	require.ErrorIs(t, err, ErrDuplicateSubject)
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	_, err := r.UpdateBySubject(ctx, "nope", &models.Patch{Username: "x"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.DeleteBySubject(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}
