// Copyright (c) 2025 Go Lambda API Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	_ "embed"

	lambdaapi "github.com/davidsoendoro/go-lambda-api"
	"github.com/davidsoendoro/go-lambda-api/example/petstore/app"
)

//go:embed config.yaml
var configBytes []byte

func main() {
	lambdaapi.Run(bytes.NewReader(configBytes), app.Init)
}
