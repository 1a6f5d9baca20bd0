package openapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/wI2L/fizz"
	fizzopenapi "github.com/wI2L/fizz/openapi"
)

// Document serialises the OpenAPI document fizz generated for f.
func Document(f *fizz.Fizz, info *fizzopenapi.Info) ([]byte, error) {
	f.Generator().SetInfo(info)
	raw, err := json.MarshalIndent(f.Generator().API(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not marshal OpenAPI document: %w", err)
	}
	return raw, nil
}

// Check loads raw with kin-openapi and makes sure every path in
// requiredPaths is documented.
func Check(ctx context.Context, raw []byte, requiredPaths ...string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	if doc.Info == nil || doc.Info.Version == "" {
		return nil, fmt.Errorf("invalid OpenAPI document: version missing")
	}
	for _, p := range requiredPaths {
		if doc.Paths == nil || doc.Paths.Value(p) == nil {
			return nil, fmt.Errorf("invalid OpenAPI document: path %s missing", p)
		}
	}
	return doc, nil
}
