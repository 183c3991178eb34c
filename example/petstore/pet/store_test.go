// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	t.Run("will return pets ordered by name", func(t *testing.T) {
		t.Run("if several pets are stored", func(t *testing.T) {
			store := NewStore()
			store.Add("Ziggy", "cat")
			store.Add("Ace", "dog")
			store.Add("Milo", "cat")

			pets := store.List()
			if !assert.Len(t, pets, 3) {
				return
			}
			assert.Equal(t, "Ace", pets[0].Name)
			assert.Equal(t, "Milo", pets[1].Name)
			assert.Equal(t, "Ziggy", pets[2].Name)
		})
	})

	t.Run("will fail with ErrNotFound", func(t *testing.T) {
		t.Run("if the id was never stored", func(t *testing.T) {
			store := NewStore()

			_, err := store.Get("missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})

		t.Run("if the pet was already deleted", func(t *testing.T) {
			store := NewStore()
			p := store.Add("Rex", "dog")

			if !assert.Nil(t, store.Delete(p.ID)) {
				return
			}
			assert.ErrorIs(t, store.Delete(p.ID), ErrNotFound)
		})
	})

	t.Run("will return the stored pet", func(t *testing.T) {
		t.Run("if the id exists", func(t *testing.T) {
			store := NewStore()
			added := store.Add("Rex", "dog")

			got, err := store.Get(added.ID)
			if !assert.Nil(t, err) {
				return
			}
			assert.Equal(t, added, got)
		})
	})
}
