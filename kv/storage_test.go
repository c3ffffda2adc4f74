package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	getHeaders := func() *Storage {
		return New().
			Add("Foo", "bar").
			Add("Hello", "World").
			Add("Lorem", "ipsum").
			Add("hello", "Pavlo")
	}

	t.Run("get", func(t *testing.T) {
		kv := getHeaders()
		value, found := kv.Get("HELLO")
		require.True(t, found)
		require.Equal(t, "World", value)
		require.Equal(t, "fallback", kv.ValueOr("nonexisting", "fallback"))
		require.True(t, kv.Has("lorem"))
		require.False(t, kv.Has("ipsum"))
	})

	t.Run("values", func(t *testing.T) {
		kv := getHeaders()
		require.Equal(t, []string{"World", "Pavlo"}, kv.Values("hello"))
		require.Nil(t, kv.Values("nonexisting"))
	})

	t.Run("keys", func(t *testing.T) {
		require.Equal(t, []string{"Foo", "Hello", "Lorem"}, getHeaders().Keys())
	})

	t.Run("pairs keep order", func(t *testing.T) {
		var keys []string
		for key := range getHeaders().Pairs() {
			keys = append(keys, key)
		}

		require.Equal(t, []string{"Foo", "Hello", "Lorem", "hello"}, keys)
	})

	t.Run("clone", func(t *testing.T) {
		original := getHeaders()
		clone := original.Clone()
		original.Clear()
		require.True(t, original.Empty())
		require.Equal(t, 4, clone.Len())
		require.Equal(t, "bar", clone.Value("foo"))
	})
}
