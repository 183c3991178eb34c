// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinary(t *testing.T) {
	t.Run("will report unhealthy", func(t *testing.T) {
		t.Run("if it is the zero value", func(t *testing.T) {
			var b Binary

			healthy, err := b.Healthy(context.Background())
			assert.Nil(t, err)
			assert.False(t, healthy)
		})

		t.Run("if it was marked unhealthy", func(t *testing.T) {
			var b Binary
			b.MarkHealthy()
			b.MarkUnhealthy()

			healthy, err := b.Healthy(context.Background())
			assert.Nil(t, err)
			assert.False(t, healthy)
		})
	})

	t.Run("will report healthy", func(t *testing.T) {
		t.Run("if it was marked healthy", func(t *testing.T) {
			var b Binary
			b.MarkHealthy()

			healthy, err := b.Healthy(context.Background())
			assert.Nil(t, err)
			assert.True(t, healthy)
		})
	})
}

type monitorFunc func(context.Context) (bool, error)

func (f monitorFunc) Healthy(ctx context.Context) (bool, error) {
	return f(ctx)
}

func TestAndMonitor(t *testing.T) {
	t.Run("will report healthy", func(t *testing.T) {
		t.Run("if all monitors are healthy", func(t *testing.T) {
			var a, b Binary
			a.MarkHealthy()
			b.MarkHealthy()

			healthy, err := And(&a, &b).Healthy(context.Background())
			assert.Nil(t, err)
			assert.True(t, healthy)
		})
	})

	t.Run("will report unhealthy", func(t *testing.T) {
		t.Run("if any monitor is unhealthy", func(t *testing.T) {
			var a, b Binary
			a.MarkHealthy()

			healthy, err := And(&a, &b).Healthy(context.Background())
			assert.Nil(t, err)
			assert.False(t, healthy)
		})

		t.Run("if any monitor fails", func(t *testing.T) {
			var a Binary
			a.MarkHealthy()

			failure := errors.New("connection refused")
			m := monitorFunc(func(context.Context) (bool, error) {
				return false, failure
			})

			healthy, err := And(&a, m).Healthy(context.Background())
			assert.ErrorIs(t, err, failure)
			assert.False(t, healthy)
		})
	})
}
