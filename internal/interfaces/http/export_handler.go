package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/academiagest/registro-rrsif/internal/application/dto"
	"github.com/academiagest/registro-rrsif/internal/application/registro"
	"github.com/academiagest/registro-rrsif/internal/domain"
)

// ExportHandler vuelca los libros para inspección o remisión (protegido).
type ExportHandler struct {
	uc *registro.Export
}

// NewExportHandler construye el handler.
func NewExportHandler(uc *registro.Export) *ExportHandler {
	return &ExportHandler{uc: uc}
}

// Export genera el volcado pedido.
// GET /api/export?alcance=facturas|eventos|todo&formato=json|csv|xml
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	alcance := c.Query("alcance", registro.AlcanceTodo)
	formato := c.Query("formato", registro.FormatoJSON)

	out, err := h.uc.Exportar(c.Context(), GetNombre(c), alcance, formato)
	if err != nil {
		if errors.Is(err, domain.ErrValidacion) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	c.Set("Content-Type", out.ContentType)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=export-%s-%s.%s",
		alcance, time.Now().UTC().Format("20060102-150405"), formato))
	return c.Send(out.Datos)
}
