package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Afip      *AfipHandler
	Partners  *PartnerHandler
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	invoices := api.Group("/invoices")
	invoices.Post("/post", deps.Afip.PostInvoices)
	invoices.Post("/caea/request", deps.Afip.RequestCAEA)
	invoices.Post("/caea/report", deps.Afip.ReportCAEA)
	invoices.Get("/:id/afip", deps.Afip.GetStatus)

	caea := api.Group("/caea")
	caea.Post("/report/enqueue", deps.Afip.EnqueueReport)

	partners := api.Group("/partners")
	partners.Post("/mipyme", deps.Partners.RefreshMiPyME)
}
