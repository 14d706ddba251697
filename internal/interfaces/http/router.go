package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/academiagest/registro-rrsif/internal/application/auth"
	"github.com/academiagest/registro-rrsif/internal/application/registro"
	"github.com/academiagest/registro-rrsif/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AltaFactura  *registro.AltaFactura
	CicloVida    *registro.CicloVida
	Eventos      *registro.RegistroEventos
	Verificacion *registro.Verificacion
	Export       *registro.Export
	Reloj        registro.VerificadorReloj
	PDF          FacturaPDFGenerator
	AuthUC       *auth.AuthUseCase
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Facturas (protegido)
	facturas := protected.Group("/facturas")
	facturaHandler := NewFacturaHandler(deps.AltaFactura, deps.CicloVida, deps.PDF)
	facturas.Post("/", facturaHandler.Create)
	facturas.Get("/:id", facturaHandler.GetByID)
	facturas.Post("/:id/finalizar", facturaHandler.Finalizar)
	facturas.Delete("/:id", facturaHandler.Delete)
	facturas.Post("/:id/anular", facturaHandler.Anular)
	facturas.Get("/:id/pdf", facturaHandler.PDF)

	// Registro de eventos (protegido)
	eventos := protected.Group("/eventos")
	eventoHandler := NewEventoHandler(deps.Eventos)
	eventos.Get("/", eventoHandler.List)
	eventos.Post("/resumen", eventoHandler.Resumen)

	// Verificación de cadenas (protegido)
	verificacion := protected.Group("/verificacion")
	verificacionHandler := NewVerificacionHandler(deps.Verificacion)
	verificacion.Get("/facturas", verificacionHandler.Facturas)
	verificacion.Get("/anulaciones", verificacionHandler.Anulaciones)
	verificacion.Get("/eventos", verificacionHandler.Eventos)

	// Export (protegido, solo admin: la remisión es cosa del responsable)
	exportHandler := NewExportHandler(deps.Export)
	protected.Get("/export", RequireRole(entity.RolAdmin), exportHandler.Export)

	// Estado del reloj (protegido)
	relojHandler := NewRelojHandler(deps.Reloj)
	protected.Get("/reloj", relojHandler.Estado)
}
