// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package pet implements the petstore domain: an in-memory pet store
// and the controller declaration serving it.
package pet

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no pet exists under the requested id.
var ErrNotFound = errors.New("pet: not found")

// Pet is one animal available for adoption.
type Pet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Store is an in-memory pet inventory. It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	pets map[string]Pet
}

// NewStore initializes an empty [Store].
func NewStore() *Store {
	return &Store{
		pets: make(map[string]Pet),
	}
}

// List returns all pets ordered by name.
func (s *Store) List() []Pet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pets := make([]Pet, 0, len(s.pets))
	for _, p := range s.pets {
		pets = append(pets, p)
	}
	sort.Slice(pets, func(i, j int) bool {
		return pets[i].Name < pets[j].Name
	})
	return pets
}

// Get returns the pet stored under id.
func (s *Store) Get(id string) (Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pets[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

// Add stores a new pet under a generated id.
func (s *Store) Add(name, kind string) Pet {
	p := Pet{
		ID:   uuid.NewString(),
		Name: name,
		Kind: kind,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pets[p.ID] = p
	return p
}

// Delete removes the pet stored under id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pets[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.pets, id)
	return nil
}
