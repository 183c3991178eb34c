// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package pet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	lambdaapi "github.com/davidsoendoro/go-lambda-api"
	"github.com/davidsoendoro/go-lambda-api/api"

	"github.com/z5labs/sdk-go/ptr"
)

type handler struct {
	log   *slog.Logger
	store *Store
}

func (h *handler) list(ctx context.Context) ([]Pet, error) {
	return h.store.List(), nil
}

func (h *handler) get(ctx context.Context, id string) (Pet, error) {
	return h.store.Get(id)
}

func (h *handler) add(ctx context.Context, body map[string]any) (Pet, error) {
	name, _ := body["name"].(string)
	if name == "" {
		return Pet{}, api.BadRequestError{Cause: errors.New("pet name is required")}
	}
	kind, _ := body["kind"].(string)

	p := h.store.Add(name, kind)
	h.log.InfoContext(ctx, "registered pet", slog.String("id", p.ID))
	return p, nil
}

func (h *handler) remove(ctx context.Context, id string) error {
	err := h.store.Delete(id)
	if err != nil {
		return err
	}
	h.log.InfoContext(ctx, "removed pet", slog.String("id", id))
	return nil
}

// notFound maps [ErrNotFound] onto a 404 response instead of the
// framework default 500.
func notFound(ctx context.Context, apiErr *api.ApiError) (any, error) {
	if !errors.Is(apiErr.Err, ErrNotFound) {
		return nil, apiErr.Err
	}
	apiErr.Response.WriteHeader(http.StatusNotFound)
	return map[string]string{"error": "pet not found"}, nil
}

var petShape = &api.Shape{
	Name: "Pet",
	Example: Pet{
		ID:   "d7f3d53a-4b74-4f5a-9d3e-2f0c6d7c3a10",
		Name: "Rex",
		Kind: "dog",
	},
}

// Controller declares the pet endpoints over the given store. Reads
// are public; mutations require authentication and removal requires
// the admin role.
func Controller(store *Store) api.Controller {
	return api.Controller{
		Name:             "Pets",
		BasePath:         "/pet",
		Group:            "Pets",
		GroupDescription: "Manage the pets available for adoption.",
		New: func() any {
			return &handler{
				log:   lambdaapi.Logger("petstore"),
				store: store,
			}
		},
		Endpoints: []api.Endpoint{
			{
				Name:        "listPets",
				Method:      http.MethodGet,
				Path:        "/",
				Description: "List all pets ordered by name.",
				NoAuth:      ptr.Ref(true),
				Invoke: func(ctx context.Context, target any, args []any) (any, error) {
					return target.(*handler).list(ctx)
				},
			},
			{
				Name:        "getPet",
				Method:      http.MethodGet,
				Path:        "/:id",
				Description: "Fetch one pet by id.",
				NoAuth:      ptr.Ref(true),
				Params: []api.Param{
					{Source: api.FromPath, Key: "id"},
				},
				Responses: map[int]*api.Shape{
					http.StatusOK: petShape,
				},
				ErrorInterceptor: api.ErrorInterceptorFunc(notFound),
				Invoke: func(ctx context.Context, target any, args []any) (any, error) {
					return target.(*handler).get(ctx, args[0].(string))
				},
			},
			{
				Name:        "registerPet",
				Method:      http.MethodPost,
				Path:        "/",
				Description: "Register a new pet.",
				Params: []api.Param{
					{Source: api.FromBody},
				},
				Request: &api.Shape{
					Name: "NewPet",
					Fields: []api.Field{
						{Name: "name", Type: "string"},
						{Name: "kind", Type: "string"},
					},
				},
				Responses: map[int]*api.Shape{
					http.StatusOK: petShape,
				},
				Invoke: func(ctx context.Context, target any, args []any) (any, error) {
					body, ok := args[0].(map[string]any)
					if !ok {
						return nil, api.BadRequestError{
							Cause: fmt.Errorf("expected a json object body but got %T", args[0]),
						}
					}
					return target.(*handler).add(ctx, body)
				},
			},
			{
				Name:        "removePet",
				Method:      http.MethodDelete,
				Path:        "/:id",
				Description: "Remove a pet from the store.",
				Roles:       []string{"admin"},
				Params: []api.Param{
					{Source: api.FromPath, Key: "id"},
				},
				ErrorInterceptor: api.ErrorInterceptorFunc(notFound),
				Invoke: func(ctx context.Context, target any, args []any) (any, error) {
					return nil, target.(*handler).remove(ctx, args[0].(string))
				},
			},
		},
	}
}
