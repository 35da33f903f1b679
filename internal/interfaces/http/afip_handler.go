package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/jhoicas/afipws-caea/internal/application/dto"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

// invoicePoster lo implementa *billing.PostInvoicesUseCase.
type invoicePoster interface {
	PostInvoices(ctx context.Context, companyID string, ids []string) ([]*entity.Invoice, error)
	RequestCAEA(ctx context.Context, companyID string, ids []string) ([]*entity.Invoice, error)
	GetAfipStatus(ctx context.Context, companyID, id string) (*entity.Invoice, error)
}

// caeaSubmitter lo implementa *billing.CAEASubmitter.
type caeaSubmitter interface {
	Submit(ctx context.Context, companyID string, ids []string) ([]*entity.Invoice, error)
}

// reportEnqueuer lo implementa *queue.Client.
type reportEnqueuer interface {
	EnqueueCAEAReport(ctx context.Context, companyID string) (*asynq.TaskInfo, error)
}

// AfipHandler maneja la autorización AFIP de comprobantes. Las rutas pasan
// siempre por AuthMiddleware, que garantiza la empresa del token.
type AfipHandler struct {
	poster    invoicePoster
	submitter caeaSubmitter
	enqueuer  reportEnqueuer
	log       *logger.Logger
}

// NewAfipHandler construye el handler. enqueuer puede ser nil si no hay worker.
func NewAfipHandler(poster invoicePoster, submitter caeaSubmitter, enqueuer reportEnqueuer, log *logger.Logger) *AfipHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AfipHandler{poster: poster, submitter: submitter, enqueuer: enqueuer, log: log.WithComponent("afip-handler")}
}

// PostInvoices valida comprobantes y solicita su autorización (CAE o CAEA).
// POST /api/invoices/post
func (h *AfipHandler) PostInvoices(c *fiber.Ctx) error {
	return h.batch(c, h.poster.PostInvoices)
}

// RequestCAEA sella con el CAEA activo comprobantes ya validados.
// POST /api/invoices/caea/request
func (h *AfipHandler) RequestCAEA(c *fiber.Ctx) error {
	return h.batch(c, h.poster.RequestCAEA)
}

// ReportCAEA informa a AFIP comprobantes sellados con CAEA.
// POST /api/invoices/caea/report
func (h *AfipHandler) ReportCAEA(c *fiber.Ctx) error {
	return h.batch(c, h.submitter.Submit)
}

// batch ejecuta fn sobre los ids del body. Si el lote se corta, la respuesta de
// error incluye los comprobantes que sí quedaron confirmados.
func (h *AfipHandler) batch(c *fiber.Ctx, fn func(context.Context, string, []string) ([]*entity.Invoice, error)) error {
	companyID := GetCompanyID(c)
	var in dto.InvoiceIDsRequest
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	invoices, err := fn(c.UserContext(), companyID, in.InvoiceIDs)
	if err != nil {
		h.log.Warn().Err(err).Str("company_id", companyID).Str("user_id", GetUserID(c)).Str("path", c.Path()).
			Int("procesados", len(invoices)).Msg("lote AFIP con error")
		status, body := errorResponse(err)
		if len(invoices) > 0 {
			body.Invoices = dto.ToAfipBatch(invoices).Invoices
		}
		return c.Status(status).JSON(body)
	}
	return c.JSON(dto.ToAfipBatch(invoices))
}

// GetStatus devuelve el estado de autorización AFIP de un comprobante.
// GET /api/invoices/:id/afip
func (h *AfipHandler) GetStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	inv, err := h.poster.GetAfipStatus(c.UserContext(), GetCompanyID(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToAfipStatus(inv))
}

// EnqueueReport encola el informe de todos los comprobantes CAEA pendientes.
// POST /api/caea/report/enqueue
func (h *AfipHandler) EnqueueReport(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if h.enqueuer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "QUEUE_DISABLED", Message: "cola de tareas no configurada"})
	}
	var in dto.ReportEnqueueRequest
	if len(c.Body()) > 0 {
		if ok, err := bindAndValidate(c, &in); !ok {
			return err
		}
	}
	if in.CompanyID != "" && in.CompanyID != companyID {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	}
	info, err := h.enqueuer.EnqueueCAEAReport(c.UserContext(), companyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.EnqueueResponse{TaskID: info.ID, Queue: info.Queue})
}
