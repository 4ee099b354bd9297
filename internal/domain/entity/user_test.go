package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u := NewUser(1, 10)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, int64(10), u.ChatID)
	require.Equal(t, StateMainMenu, u.State)
}

func TestSetState(t *testing.T) {
	u := NewUser(1, 10)
	u.SetState(StateAwaitingPhoto)
	require.Equal(t, StateAwaitingPhoto, u.State)
}
