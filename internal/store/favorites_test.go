package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFavoritesMap_DoubleToggleRestoresSet(t *testing.T) {
	start := FavoritesMap{}.Replace("user1", []string{"a", "b"})

	for _, id := range []string{"a", "c"} {
		once := start.Toggle("user1", id)
		assert.NotEqual(t, start.Contains("user1", id), once.Contains("user1", id))

		twice := once.Toggle("user1", id)
		assert.ElementsMatch(t, start.Get("user1"), twice.Get("user1"))
	}
}

func TestFavoritesMap_ToggleCreatesEntry(t *testing.T) {
	m := FavoritesMap{}.Toggle("user1", "evt1")
	assert.Equal(t, []string{"evt1"}, m.Get("user1"))
	assert.True(t, m.Contains("user1", "evt1"))
	assert.False(t, m.Contains("user2", "evt1"))
}

func TestFavoritesMap_CopyOnWrite(t *testing.T) {
	base := FavoritesMap{}.Replace("user1", []string{"a"})
	_ = base.Toggle("user1", "b")
	_ = base.Remove("user1")
	_ = base.Set("user1", "a", false)

	assert.Equal(t, []string{"a"}, base.Get("user1"))
}

func TestFavoritesMap_ReplaceOverwrites(t *testing.T) {
	m := FavoritesMap{}.Replace("user1", []string{"local-only"})
	m = m.Replace("user1", []string{"r1", "r2", "r1", ""})

	assert.Equal(t, []string{"r1", "r2"}, m.Get("user1"))
}

func TestFavoritesMap_Remove(t *testing.T) {
	m := FavoritesMap{}.Replace("user1", []string{"a"}).Replace("user2", []string{"b"})
	m = m.Remove("user1")

	_, ok := m["user1"]
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, m.Get("user2"))

	assert.Equal(t, m, m.Remove("absent"))
}

func TestFavoritesMap_SetIsIdempotent(t *testing.T) {
	m := FavoritesMap{}.Set("u", "a", true).Set("u", "a", true)
	assert.Equal(t, []string{"a"}, m.Get("u"))

	m = m.Set("u", "a", false).Set("u", "a", false)
	assert.Empty(t, m.Get("u"))
}
