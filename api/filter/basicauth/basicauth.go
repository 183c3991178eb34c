// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package basicauth provides a HTTP Basic [api.AuthFilter] backed by a
// pluggable credential store.
package basicauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/davidsoendoro/go-lambda-api/api"

	"golang.org/x/crypto/argon2"
)

// ErrUnknownUser is returned by a [CredentialStore] when the username
// is not registered.
var ErrUnknownUser = errors.New("basicauth: unknown user")

// ErrInvalidPassword is returned by a [CredentialStore] when the
// password does not match the stored credential.
var ErrInvalidPassword = errors.New("basicauth: invalid password")

// CredentialStore verifies a username and password pair into a
// [api.Principal].
type CredentialStore interface {
	Verify(ctx context.Context, username, password string) (*api.Principal, error)
}

// Credentials is the data extracted from the Authorization header.
type Credentials struct {
	Username string
	Password string
}

// Filter is a HTTP Basic [api.AuthFilter].
type Filter struct {
	name  string
	store CredentialStore
}

var _ api.AuthFilter = (*Filter)(nil)

// FilterOption sets values on [Filter].
type FilterOption func(*Filter)

// FilterName overrides the filter name used for the generated
// security scheme. Defaults to "basicAuth".
func FilterName(name string) FilterOption {
	return func(f *Filter) {
		f.name = name
	}
}

// New initializes a [Filter] over the given credential store.
func New(store CredentialStore, opts ...FilterOption) *Filter {
	f := &Filter{
		name:  "basicAuth",
		store: store,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements the [api.AuthFilter] interface.
func (f *Filter) Name() string {
	return f.name
}

// Scheme implements the [api.AuthFilter] interface.
func (f *Filter) Scheme() string {
	return "Basic"
}

// Extract reads the Basic Authorization header. A missing header
// yields nil data; a present but malformed header is an error.
func (f *Filter) Extract(ctx context.Context, r *http.Request) (any, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, errors.New("basicauth: malformed authorization header")
	}
	return Credentials{Username: username, Password: password}, nil
}

// Authenticate verifies the extracted credentials against the store.
func (f *Filter) Authenticate(ctx context.Context, data any) (*api.Principal, error) {
	creds, ok := data.(Credentials)
	if !ok {
		return nil, fmt.Errorf("basicauth: unexpected credential data type %T", data)
	}
	return f.store.Verify(ctx, creds.Username, creds.Password)
}

// argon2Params are the argon2id cost parameters used when hashing.
type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

func defaultArgon2Params() argon2Params {
	return argon2Params{
		memory:      64 * 1024,
		iterations:  3,
		parallelism: 2,
		saltLength:  16,
		keyLength:   32,
	}
}

// InMemoryStore is a [CredentialStore] holding argon2id hashed
// passwords keyed by username. It is safe for concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]inMemoryUser
}

type inMemoryUser struct {
	encodedHash string
	roles       []string
}

// NewInMemoryStore initializes an empty [InMemoryStore].
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users: make(map[string]inMemoryUser),
	}
}

// SetPassword hashes the password with argon2id and stores it under
// username along with the user's roles.
func (s *InMemoryStore) SetPassword(username, password string, roles ...string) error {
	encoded, err := hashPassword(password, defaultArgon2Params())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = inMemoryUser{
		encodedHash: encoded,
		roles:       roles,
	}
	return nil
}

// Verify implements the [CredentialStore] interface. The returned
// principal carries the user's roles under the "roles" attribute.
func (s *InMemoryStore) Verify(ctx context.Context, username, password string) (*api.Principal, error) {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownUser
	}

	match, err := verifyPassword(password, user.encodedHash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, ErrInvalidPassword
	}

	return &api.Principal{
		Name: username,
		Attributes: map[string]any{
			"roles": user.roles,
		},
	}, nil
}

// Authorizer returns an [api.Authorizer] which grants a role when it
// appears in the principal's "roles" attribute.
func (s *InMemoryStore) Authorizer() api.Authorizer {
	return api.AuthorizerFunc(func(ctx context.Context, p *api.Principal, role string) (bool, error) {
		roles, _ := p.Attributes["roles"].([]string)
		for _, r := range roles {
			if r == role {
				return true, nil
			}
		}
		return false, nil
	})
}

func hashPassword(password string, params argon2Params) (string, error) {
	salt := make([]byte, params.saltLength)
	_, err := rand.Read(salt)
	if err != nil {
		return "", fmt.Errorf("basicauth: failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		params.keyLength,
	)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.memory,
		params.iterations,
		params.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

func verifyPassword(password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		salt,
		params.iterations,
		params.memory,
		params.parallelism,
		params.keyLength,
	)
	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

func decodeHash(encodedHash string) (argon2Params, []byte, []byte, error) {
	var params argon2Params

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return params, nil, nil, errors.New("basicauth: invalid hash format")
	}
	if parts[1] != "argon2id" {
		return params, nil, nil, errors.New("basicauth: unsupported hash algorithm")
	}

	var version int
	_, err := fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil {
		return params, nil, nil, fmt.Errorf("basicauth: invalid hash version: %w", err)
	}
	if version != argon2.Version {
		return params, nil, nil, errors.New("basicauth: incompatible argon2 version")
	}

	_, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &params.parallelism)
	if err != nil {
		return params, nil, nil, fmt.Errorf("basicauth: invalid hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("basicauth: invalid salt encoding: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params, nil, nil, fmt.Errorf("basicauth: invalid hash encoding: %w", err)
	}
	params.keyLength = uint32(len(hash))

	return params, salt, hash, nil
}
