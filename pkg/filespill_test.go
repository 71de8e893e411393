package pkg

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type record struct {
	ID   string
	When time.Time
	Text string
}

func TestFileSpill(t *testing.T) {
	t.Run("NewFileSpill creates file in dir", func(t *testing.T) {
		dir := t.TempDir()

		spill, err := NewFileSpill[int](dir, "crashes-*.gob")
		require.NoError(t, err)
		defer spill.Close()

		require.Equal(t, dir, filepath.Dir(spill.Path()))
		require.Contains(t, filepath.Base(spill.Path()), "crashes-")
		require.Equal(t, uint64(0), spill.Len())
	})

	t.Run("NewFileSpill creates missing dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "crashes")

		spill, err := NewFileSpill[int](dir, "spill-*.gob")
		require.NoError(t, err)
		defer spill.Close()

		require.DirExists(t, dir)
	})

	t.Run("Append and Get", func(t *testing.T) {
		spill, err := NewFileSpill[string](t.TempDir(), "spill-*.gob")
		require.NoError(t, err)
		defer spill.Close()

		require.NoError(t, spill.Append("first"))
		require.NoError(t, spill.Append("second"))

		val, err := spill.Get(0)
		require.NoError(t, err)
		require.Equal(t, "first", val)

		val, err = spill.Get(1)
		require.NoError(t, err)
		require.Equal(t, "second", val)

		val, err = spill.Get(3)
		require.Error(t, err)
		require.Empty(t, val)
	})

	t.Run("Range iterates in order", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir(), "spill-*.gob")
		require.NoError(t, err)
		defer spill.Close()

		expected := []int{100, 200, 300}
		for _, v := range expected {
			require.NoError(t, spill.Append(v))
		}

		var collected []int
		err = spill.Range(func(_ uint64, item int) error {
			collected = append(collected, item)
			return nil
		})

		require.NoError(t, err)
		require.Equal(t, expected, collected)
	})

	t.Run("Range callback error stops iteration", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir(), "spill-*.gob")
		require.NoError(t, err)
		defer spill.Close()

		for i := range 3 {
			require.NoError(t, spill.Append(i))
		}

		stop := errors.New("stop at index 1")
		count := 0

		err = spill.Range(func(index uint64, _ int) error {
			count++
			if index == 1 {
				return stop
			}

			return nil
		})

		require.ErrorIs(t, err, stop)
		require.Equal(t, 2, count)
	})

	t.Run("structs survive Close and reopen", func(t *testing.T) {
		spill, err := NewFileSpill[record](t.TempDir(), "spill-*.gob")
		require.NoError(t, err)

		when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, spill.Append(record{ID: "a", When: when, Text: "v0 = LoadInteger \"1\""}))
		require.NoError(t, spill.Append(record{ID: "b", When: when}))
		require.NoError(t, spill.Close())
		require.NoError(t, spill.Close())

		require.Error(t, spill.Append(record{ID: "c"}))

		reopened, err := OpenFileSpill[record](spill.Path())
		require.NoError(t, err)
		require.Equal(t, uint64(2), reopened.Len())

		got, err := reopened.Get(0)
		require.NoError(t, err)
		require.Equal(t, "a", got.ID)
		require.True(t, when.Equal(got.When))
		require.Equal(t, "v0 = LoadInteger \"1\"", got.Text)
	})

	t.Run("OpenFileSpill missing file", func(t *testing.T) {
		_, err := OpenFileSpill[int](filepath.Join(t.TempDir(), "missing.gob"))
		require.Error(t, err)
	})
}
