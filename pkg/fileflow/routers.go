package fileflow

import (
	"time"

	"github.com/fileflow-app/fileflow/pkg/fileflow/handler"
	"github.com/fileflow-app/fileflow/pkg/fileflow/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/loopfz/gadgeto/tonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wI2L/fizz"
	"github.com/wI2L/fizz/openapi"
)

const adminScope = "storage:admin"

var (
	apiVersionHeader = fizz.Header(
		"API-Version",
		"API version of the response",
		"", // empty string: primitive string in the document
	)

	badRequestResponse = fizz.Response("400", "Bad Request", nil, nil, nil)
	notFoundResponse   = fizz.Response("404", "Not Found", nil, nil, nil)
)

type RouterOptions struct {
	// AuthSecret verifies admin tokens.
	AuthSecret []byte
	// TrustGateway accepts unverified admin tokens when AuthSecret is
	// empty. Without either the admin routes refuse every request.
	TrustGateway bool
	// AllowedOrigins for browser clients; empty allows any origin.
	AllowedOrigins []string
}

func NewRouter(apiVersion string, controller *handler.ImageController, opts RouterOptions) *fizz.Fizz {
	registerErrorHook()

	// 0) Gin + Fizz init
	g := gin.New()
	g.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		cors.New(corsConfig(opts.AllowedOrigins)),
		APIVersionMiddleware(apiVersion),
	)
	f := fizz.NewFromEngine(g)

	gen := f.Generator()
	gen.API().Components.Headers["API-Version"] = &openapi.HeaderOrRef{
		Header: &openapi.Header{
			Description: "API version of the response",
			Schema: &openapi.SchemaOrRef{
				Schema: &openapi.Schema{
					Type: "string",
				},
			},
		},
	}

	root := f.Group("/v1", "API v1", "Fileflow V1 routes")

	// 1) sharing
	share := root.Group("", "Sharing", "Upload images or register image links")
	share.POST("/ensure-bucket",
		[]fizz.OperationOption{
			fizz.Summary("Make sure the storage bucket exists and is publicly readable"),
			apiVersionHeader,
		},
		tonic.Handler(controller.EnsureBucket, 200),
	)

	share.POST("/share-link",
		[]fizz.OperationOption{
			fizz.Summary("Register an externally hosted image under a new code"),
			apiVersionHeader,
			badRequestResponse,
		},
		tonic.Handler(controller.ShareLink, 200),
	)

	share.POST("/upload",
		[]fizz.OperationOption{
			fizz.Summary("Upload an image (multipart/form-data: file, optional filename)"),
			fizz.Description("Images only, at most 10 MiB."),
			apiVersionHeader,
			badRequestResponse,
		},
		tonic.Handler(controller.Upload, 200),
	)

	// 2) viewing
	view := root.Group("", "Viewing", "Look up shared images by code")
	view.GET("/images/:code",
		[]fizz.OperationOption{
			fizz.Summary("Retrieve a shared image record"),
			apiVersionHeader,
			notFoundResponse,
		},
		tonic.Handler(controller.RetrieveImage, 200),
	)

	view.POST("/images/:code/verify",
		[]fizz.OperationOption{
			fizz.Summary("Check an access code and return the image record"),
			apiVersionHeader,
			badRequestResponse,
			notFoundResponse,
			fizz.Response("429", "Too Many Requests", nil, nil, nil),
		},
		tonic.Handler(controller.VerifyImage, 200),
	)

	// 3) maintenance
	admin := root.Group("/admin", "Admin", "Maintenance endpoints", middleware.RequireAccess(adminScope, opts.AuthSecret, opts.TrustGateway))
	admin.POST("/sweep",
		[]fizz.OperationOption{
			fizz.Summary("Remove stored blobs that have no record"),
			apiVersionHeader,
		},
		tonic.Handler(controller.SweepOrphans, 200),
	)

	// 4) OpenAPI document and metrics
	f.GET("/v1/openapi.json", []fizz.OperationOption{}, f.OpenAPI(APIInfo(apiVersion), "json"))
	g.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return f
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"API-Version", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// APIInfo is the info block of the generated OpenAPI document.
func APIInfo(apiVersion string) *openapi.Info {
	return &openapi.Info{
		Title:       "Fileflow API v1",
		Description: "Share images under short access codes",
		Version:     apiVersion,
	}
}

type apiVersionWriter struct {
	gin.ResponseWriter
	version string
}

func (w *apiVersionWriter) WriteHeader(code int) {
	if code >= 200 && code < 300 {
		w.Header().Set("API-Version", w.version)
	}
	w.ResponseWriter.WriteHeader(code)
}

func APIVersionMiddleware(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &apiVersionWriter{c.Writer, version}
		c.Next()
	}
}
