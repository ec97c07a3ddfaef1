package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/weatheriq/internal/metrics"
	"github.com/i474232898/weatheriq/internal/query"
)

var validate = validator.New()

// Searcher answers free-text weather queries.
type Searcher interface {
	Search(ctx context.Context, text string) query.Response
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. m may be nil,
// in which case /metrics is not served.
func RegisterRoutes(app *fiber.App, searcher Searcher, m *metrics.Manager) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatheriq",
		})
	})

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	handler := queryHandler(searcher)
	app.Get("/query", handler)
	app.Get("/query/", handler)

	v1 := app.Group("/api/v1")
	v1.Get("/query", handler)
}

// searchQuery holds the query-string parameters of the search endpoint.
type searchQuery struct {
	Query string `query:"query" validate:"required,max=200"`
}

func queryHandler(searcher Searcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var q searchQuery
		if err := c.QueryParser(&q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "query parameter is required and must be at most 200 characters")
		}

		// q.Query aliases the request buffer, which fasthttp reuses; the text
		// may end up in a stored row.
		resp := searcher.Search(c.UserContext(), utils.CopyString(q.Query))
		return c.JSON(resp)
	}
}

// ErrorHandler renders framework and handler errors as {"error": "..."},
// the same shape a failed search uses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
