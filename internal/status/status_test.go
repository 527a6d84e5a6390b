package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, InProgress, Normalize("in-progress"))
	require.Equal(t, InProgress, Normalize("in_progress"))
	require.Equal(t, OnWay, Normalize("on-way"))
	require.Equal(t, Cancelled, Normalize("CANCELLED"))
	require.Equal(t, Pending, Normalize("  pending "))

	// схема уехала — не падаем, откатываемся на pending
	require.Equal(t, Pending, Normalize("weird_status"))
	require.Equal(t, Pending, Normalize(""))
}

func TestNext(t *testing.T) {
	require.Equal(t, Assigned, Next(Pending))
	require.Equal(t, Accepted, Next(Assigned))
	require.Equal(t, OnWay, Next(Accepted))
	require.Equal(t, InProgress, Next(OnWay))
	require.Equal(t, Completed, Next(InProgress))

	require.Equal(t, "", Next(Completed))
	require.Equal(t, "", Next(Cancelled))

	// алиас нормализуется до поиска
	require.Equal(t, Completed, Next("in-progress"))
}

func TestNextLabel(t *testing.T) {
	require.Equal(t, "Mark Assigned", NextLabel(Pending))
	require.Equal(t, "Mark Completed", NextLabel(InProgress))
	require.Equal(t, "", NextLabel(Completed))
	require.Equal(t, "", NextLabel(Cancelled))
}

func TestIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(Completed))
	require.True(t, IsTerminal(Cancelled))
	require.False(t, IsTerminal(Pending))
	require.False(t, IsTerminal(InProgress))
}

func TestCanTransition(t *testing.T) {
	// вперёд только на один шаг
	require.True(t, CanTransition(Pending, Assigned))
	require.True(t, CanTransition(OnWay, InProgress))
	require.False(t, CanTransition(Pending, Accepted))
	require.False(t, CanTransition(Assigned, Pending))
	require.False(t, CanTransition(Accepted, Completed))

	// cancelled достижим из любого нетерминального
	require.True(t, CanTransition(Pending, Cancelled))
	require.True(t, CanTransition(InProgress, Cancelled))

	// терминальные не пропускают ничего
	require.False(t, CanTransition(Completed, Cancelled))
	require.False(t, CanTransition(Cancelled, Cancelled))
	require.False(t, CanTransition(Completed, Completed))

	// алиасы в обеих позициях
	require.True(t, CanTransition("on-way", "in-progress"))
}
