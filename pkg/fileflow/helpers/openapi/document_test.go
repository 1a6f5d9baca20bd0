package openapi_test

import (
	"context"
	"testing"

	"github.com/fileflow-app/fileflow/pkg/fileflow/helpers/openapi"
	"github.com/gin-gonic/gin"
	"github.com/loopfz/gadgeto/tonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wI2L/fizz"
	fizzopenapi "github.com/wI2L/fizz/openapi"
)

type pingParams struct {
	Name string `path:"name" validate:"required"`
}

type pong struct {
	Greeting string `json:"greeting"`
}

func newFizz() *fizz.Fizz {
	gin.SetMode(gin.TestMode)
	f := fizz.NewFromEngine(gin.New())
	f.GET("/v1/ping/:name", []fizz.OperationOption{fizz.Summary("ping")},
		tonic.Handler(func(c *gin.Context, p *pingParams) (*pong, error) {
			return &pong{Greeting: "hi " + p.Name}, nil
		}, 200))
	return f
}

func TestDocumentAndCheck(t *testing.T) {
	raw, err := openapi.Document(newFizz(), &fizzopenapi.Info{Title: "t", Version: "1.2.3"})
	require.NoError(t, err)

	doc, err := openapi.Check(context.Background(), raw, "/v1/ping/{name}")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", doc.Info.Version)
	assert.NotNil(t, doc.Paths.Value("/v1/ping/{name}").Get)
}

func TestCheck_MissingPath(t *testing.T) {
	raw, err := openapi.Document(newFizz(), &fizzopenapi.Info{Title: "t", Version: "1"})
	require.NoError(t, err)

	_, err = openapi.Check(context.Background(), raw, "/v1/upload")
	assert.ErrorContains(t, err, "/v1/upload")
}

func TestCheck_Garbage(t *testing.T) {
	_, err := openapi.Check(context.Background(), []byte("{not json"))
	assert.Error(t, err)
}
