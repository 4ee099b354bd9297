package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/infrastructure/storage"
)

func TestUserServiceBeginCheck(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	user, err := svc.BeginCheck(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
}

func TestUserServiceCancel(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	_, err := svc.BeginCheck(ctx, 1, 10)
	require.NoError(t, err)

	user, err := svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserServiceGetCreatesUser(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())

	user, err := svc.Get(context.Background(), 42, 100)
	require.NoError(t, err)
	require.Equal(t, int64(42), user.ID)
	require.Equal(t, entity.StateMainMenu, user.State)
}
