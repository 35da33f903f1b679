package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/jhoicas/afipws-caea/internal/application/dto"
	"github.com/jhoicas/afipws-caea/internal/domain"
)

// writeError traduce errores de dominio a respuestas HTTP.
func writeError(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	return c.Status(status).JSON(body)
}

func errorResponse(err error) (int, dto.ErrorResponse) {
	var cfgErr *domain.ConfigurationError
	var verr *domain.AfipValidationError
	switch {
	case errors.As(err, &cfgErr):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{
			Code: "AFIP_CONFIGURATION", Message: cfgErr.Error(),
			Fields: map[string]string{"invoice_id": cfgErr.InvoiceID},
		}
	case errors.Is(err, domain.ErrConfiguration):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "AFIP_CONFIGURATION", Message: err.Error()}
	case errors.As(err, &verr):
		return fiber.StatusBadGateway, dto.ErrorResponse{
			Code: "AFIP_VALIDATION", Message: verr.Error(),
			Fields: map[string]string{"kind": string(verr.Kind)},
		}
	case errors.Is(err, domain.ErrNoActiveCAEA):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "NO_ACTIVE_CAEA", Message: err.Error()}
	case errors.Is(err, domain.ErrMissingTimestamp):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "MISSING_TIMESTAMP", Message: err.Error()}
	case errors.Is(err, asynq.ErrDuplicateTask), errors.Is(err, asynq.ErrTaskIDConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "ALREADY_ENQUEUED", Message: "ya hay un informe CAEA encolado para la empresa"}
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
}
