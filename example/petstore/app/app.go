// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"os"

	lambdaapi "github.com/davidsoendoro/go-lambda-api"
	"github.com/davidsoendoro/go-lambda-api/api"
	"github.com/davidsoendoro/go-lambda-api/api/filter/basicauth"
	"github.com/davidsoendoro/go-lambda-api/example/petstore/pet"
)

type Config struct {
	lambdaapi.Config `config:",squash"`
}

func Init(ctx context.Context, cfg Config) (*api.Api, error) {
	creds := basicauth.NewInMemoryStore()
	err := creds.SetPassword(
		envOr("PETSTORE_ADMIN_USER", "admin"),
		envOr("PETSTORE_ADMIN_PASSWORD", "changeme"),
		"admin",
	)
	if err != nil {
		return nil, err
	}

	return api.New(
		cfg.ApiConfig(),
		api.RegisterController(pet.Controller(pet.NewStore())),
		api.WithAuthFilter(basicauth.New(creds)),
		api.WithAuthorizer(creds.Authorizer()),
	)
}

func envOr(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return v
}
