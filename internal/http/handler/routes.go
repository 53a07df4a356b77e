package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"billed/internal/database"
	"billed/internal/http/middleware"
	"billed/internal/metrics"
	"billed/internal/model"
	"billed/internal/route"
	"billed/internal/service"
	"billed/internal/session"
	"billed/internal/view"
)

// Dependencies are what the routes are served from.
type Dependencies struct {
	DB             database.Pinger
	Bills          service.BillService
	Sessions       session.Opener
	Renderer       *view.Renderer
	Metrics        *metrics.Bills
	Logger         *slog.Logger
	UploadMaxBytes int64
}

func isAdmin(s model.Session) bool {
	return !s.IsEmployee()
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers bind requests to containers and the bill service; no business logic lives here.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", HealthCheck(deps.DB))
	app.Get("/healthz", LivenessProbe())

	v := NewViews(ViewsConfig{
		Bills:          deps.Bills,
		Sessions:       deps.Sessions,
		Renderer:       deps.Renderer,
		Metrics:        deps.Metrics,
		Logger:         deps.Logger,
		UploadMaxBytes: deps.UploadMaxBytes,
	})

	toLogin := middleware.RedirectTo(route.Login)
	anyUser := middleware.RequireSession(v.LoadSession, nil, toLogin)
	employee := middleware.RequireSession(v.LoadSession, model.Session.IsEmployee, toLogin)
	admin := middleware.RequireSession(v.LoadSession, isAdmin, toLogin)

	// Pages
	app.Get(route.Login, v.LoginPage)
	app.Post("/login", v.Login)
	app.Post("/logout", v.Logout)

	app.Get(route.Bills, employee, v.BillsPage)
	app.Get(route.Bills+"/loading", employee, v.Loading)
	app.Get(route.Bills+"/preview", employee, v.BillsPreview)
	app.Post(route.Bills+"/new", employee, v.NewBillClick)

	app.Get(route.NewBill, employee, v.NewBillPage)
	app.Post(route.NewBill, employee, v.NewBillSubmit)
	app.Post(route.NewBill+"/file", employee, v.NewBillFile)

	app.Get(route.Dashboard, admin, v.Dashboard)
	app.Get(route.Dashboard+"/preview", admin, v.DashboardPreview)

	// Receipts
	app.Get(service.FilesPath+"*", anyUser, ServeFile(deps.Bills))

	// JSON store API
	api := app.Group("/api", middleware.RequireSession(v.LoadSession, nil, Unauthorized))
	api.Get("/bills", ListBills(deps.Bills))
	api.Post("/bills", CreateBill(deps.Bills))
	api.Post("/bills/upload", UploadReceipt(deps.Bills, deps.UploadMaxBytes))
	api.Get("/bills/:id", GetBill(deps.Bills))
	api.Patch("/bills/:id", UpdateBill(deps.Bills))
	api.Get("/bills/:id/file", BillFileLink(deps.Bills))
}
