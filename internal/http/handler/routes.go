package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/docs"
	"docvault/internal/http/middleware"
	"docvault/internal/service"
)

// Deps are the collaborators the routes are bound to. A nil Gatherer leaves
// /metrics unrouted and a false Swagger leaves /swagger/* unrouted.
type Deps struct {
	DB        Pinger
	Documents service.DocumentService
	Users     service.UserService
	Auth      service.AuthService
	Gatherer  prometheus.Gatherer
	Swagger   bool
}

// BodyLimitSlack is the multipart framing allowance on top of the per-file cap.
const BodyLimitSlack = 1 << 20

// NewApp builds the Fiber app with the standardized error handler. Request
// bodies are capped at maxUploadBytes plus BodyLimitSlack; larger bodies are
// rejected by the server before any handler runs.
func NewApp(maxUploadBytes int64) *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
		BodyLimit:    int(maxUploadBytes) + BodyLimitSlack,
	})
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	if d.Gatherer != nil {
		app.Get(middleware.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	if d.Swagger {
		app.Get("/swagger/*", swaggerUI)
	}

	auth := app.Group("/auth")
	auth.Post("/register", Register(d.Auth))
	auth.Post("/login", Login(d.Auth))
	auth.Post("/logout", middleware.RequireAuth(d.Auth), Logout(d.Auth))
	auth.Get("/me", middleware.RequireAuth(d.Auth), Me(d.Auth))

	users := app.Group("/users")
	users.Get("/", ListUsers(d.Users))
	users.Post("/", CreateUser(d.Users))
	users.Get("/:id", GetUser(d.Users))
	users.Put("/:id", UpdateUser(d.Users))
	users.Delete("/:id", DeleteUser(d.Users))

	docs := app.Group("/documents")
	docs.Get("/", ListDocuments(d.Documents))
	docs.Get("/:id", GetDocument(d.Documents))
	docs.Get("/:id/file", DownloadDocument(d.Documents))
	docs.Put("/:id", RenameDocument(d.Documents))
	docs.Delete("/:id", DeleteDocument(d.Documents))

	app.Post("/upload-document", middleware.OptionalAuth(d.Auth), UploadDocument(d.Documents))
}

// swaggerUI serves the API docs with the host and scheme the caller used.
func swaggerUI(c *fiber.Ctx) error {
	scheme := c.Protocol()
	if proto := c.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	docs.SwaggerInfo.Host = c.Get("Host")
	docs.SwaggerInfo.Schemes = []string{scheme}
	return swagger.HandlerDefault(c)
}
