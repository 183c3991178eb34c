// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package basicauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterExtract(t *testing.T) {
	t.Run("will report no credentials", func(t *testing.T) {
		t.Run("if the authorization header is absent", func(t *testing.T) {
			f := New(NewInMemoryStore())
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			data, err := f.Extract(context.Background(), r)
			if !assert.Nil(t, err) {
				return
			}
			assert.Nil(t, data)
		})
	})

	t.Run("will fail", func(t *testing.T) {
		t.Run("if the authorization header is not valid basic auth", func(t *testing.T) {
			f := New(NewInMemoryStore())
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer abc123")

			_, err := f.Extract(context.Background(), r)
			assert.NotNil(t, err)
		})
	})

	t.Run("will extract the username and password", func(t *testing.T) {
		t.Run("if the header is well formed", func(t *testing.T) {
			f := New(NewInMemoryStore())
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetBasicAuth("alice", "opensesame")

			data, err := f.Extract(context.Background(), r)
			if !assert.Nil(t, err) {
				return
			}

			creds, ok := data.(Credentials)
			if !assert.True(t, ok) {
				return
			}
			assert.Equal(t, "alice", creds.Username)
			assert.Equal(t, "opensesame", creds.Password)
		})
	})
}

func TestInMemoryStore(t *testing.T) {
	t.Run("will verify a stored password", func(t *testing.T) {
		t.Run("if the password matches", func(t *testing.T) {
			store := NewInMemoryStore()
			err := store.SetPassword("alice", "opensesame", "admin")
			if !assert.Nil(t, err) {
				return
			}

			p, err := store.Verify(context.Background(), "alice", "opensesame")
			if !assert.Nil(t, err) {
				return
			}
			assert.Equal(t, "alice", p.Name)
			assert.Equal(t, []string{"admin"}, p.Attributes["roles"])
		})
	})

	t.Run("will fail with ErrInvalidPassword", func(t *testing.T) {
		t.Run("if the password does not match", func(t *testing.T) {
			store := NewInMemoryStore()
			err := store.SetPassword("alice", "opensesame")
			if !assert.Nil(t, err) {
				return
			}

			_, err = store.Verify(context.Background(), "alice", "letmein")
			assert.ErrorIs(t, err, ErrInvalidPassword)
		})
	})

	t.Run("will fail with ErrUnknownUser", func(t *testing.T) {
		t.Run("if the username is not registered", func(t *testing.T) {
			store := NewInMemoryStore()

			_, err := store.Verify(context.Background(), "mallory", "whatever")
			assert.ErrorIs(t, err, ErrUnknownUser)
		})
	})
}

func TestFilterAuthenticate(t *testing.T) {
	t.Run("will produce a principal", func(t *testing.T) {
		t.Run("if the credentials verify against the store", func(t *testing.T) {
			store := NewInMemoryStore()
			err := store.SetPassword("alice", "opensesame")
			if !assert.Nil(t, err) {
				return
			}
			f := New(store)

			p, err := f.Authenticate(context.Background(), Credentials{
				Username: "alice",
				Password: "opensesame",
			})
			if !assert.Nil(t, err) {
				return
			}
			assert.Equal(t, "alice", p.Name)
		})
	})

	t.Run("will fail", func(t *testing.T) {
		t.Run("if the data is not basic auth credentials", func(t *testing.T) {
			f := New(NewInMemoryStore())

			_, err := f.Authenticate(context.Background(), 42)
			assert.NotNil(t, err)
		})
	})
}

func TestStoreAuthorizer(t *testing.T) {
	t.Run("will grant a role", func(t *testing.T) {
		t.Run("if it appears in the principal's roles attribute", func(t *testing.T) {
			store := NewInMemoryStore()
			err := store.SetPassword("alice", "opensesame", "reader", "admin")
			if !assert.Nil(t, err) {
				return
			}

			p, err := store.Verify(context.Background(), "alice", "opensesame")
			if !assert.Nil(t, err) {
				return
			}

			ok, err := store.Authorizer().Authorize(context.Background(), p, "admin")
			if !assert.Nil(t, err) {
				return
			}
			assert.True(t, ok)
		})
	})

	t.Run("will deny a role", func(t *testing.T) {
		t.Run("if it is not held by the principal", func(t *testing.T) {
			store := NewInMemoryStore()
			err := store.SetPassword("alice", "opensesame", "reader")
			if !assert.Nil(t, err) {
				return
			}

			p, err := store.Verify(context.Background(), "alice", "opensesame")
			if !assert.Nil(t, err) {
				return
			}

			ok, err := store.Authorizer().Authorize(context.Background(), p, "admin")
			if !assert.Nil(t, err) {
				return
			}
			assert.False(t, ok)
		})
	})
}
