// Package queue encola y procesa en segundo plano el informe de comprobantes CAEA (asynq sobre Redis).
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/pkg/config"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

const (
	TypeCAEAReport = "afip:caea:report"
	QueueAFIP      = "afip"

	// Una sola tarea de informe por empresa en la ventana.
	reportUniqueTTL = 30 * time.Minute
	reportMaxRetry  = 5
)

// CAEAReportPayload datos de la tarea de informe.
type CAEAReportPayload struct {
	CompanyID string `json:"company_id"`
}

// NewCAEAReportTask arma la tarea de informe de pendientes de una empresa.
func NewCAEAReportTask(companyID string) (*asynq.Task, error) {
	if companyID == "" {
		return nil, fmt.Errorf("queue: company_id vacío: %w", domain.ErrInvalidInput)
	}
	b, err := json.Marshal(CAEAReportPayload{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCAEAReport, b,
		asynq.Queue(QueueAFIP),
		asynq.MaxRetry(reportMaxRetry),
		asynq.Unique(reportUniqueTTL),
	), nil
}

// RedisOpt convierte la configuración de Redis a opciones de asynq.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// ──────────────────────────────────────────────────────────────────────────────
// Cliente
// ──────────────────────────────────────────────────────────────────────────────

// Client encola tareas AFIP.
type Client struct {
	c   *asynq.Client
	log *logger.Logger
}

func NewClient(opt asynq.RedisConnOpt, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{c: asynq.NewClient(opt), log: log.WithComponent("queue-client")}
}

// EnqueueCAEAReport encola el informe de pendientes. Si ya hay uno encolado para la
// empresa devuelve asynq.ErrDuplicateTask.
func (c *Client) EnqueueCAEAReport(ctx context.Context, companyID string) (*asynq.TaskInfo, error) {
	task, err := NewCAEAReportTask(companyID)
	if err != nil {
		return nil, err
	}
	info, err := c.c.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("encolar informe CAEA de %s: %w", companyID, err)
	}
	c.log.Info().Str("company_id", companyID).Str("task_id", info.ID).Str("queue", info.Queue).
		Msg("informe CAEA encolado")
	return info, nil
}

func (c *Client) Close() error { return c.c.Close() }

// ──────────────────────────────────────────────────────────────────────────────
// Procesamiento
// ──────────────────────────────────────────────────────────────────────────────

// CAEAReporter informa los comprobantes CAEA pendientes de una empresa.
type CAEAReporter interface {
	ReportPending(ctx context.Context, companyID string) ([]*entity.Invoice, error)
}

// Processor ejecuta las tareas AFIP.
type Processor struct {
	reporter CAEAReporter
	log      *logger.Logger
}

func NewProcessor(reporter CAEAReporter, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{reporter: reporter, log: log.WithComponent("queue-worker")}
}

// HandleCAEAReport informa los pendientes de la empresa del payload.
// Los errores que requieren intervención de un operador no se reintentan.
func (p *Processor) HandleCAEAReport(ctx context.Context, t *asynq.Task) error {
	var payload CAEAReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("payload inválido: %v: %w", err, asynq.SkipRetry)
	}
	if payload.CompanyID == "" {
		return fmt.Errorf("payload sin company_id: %w", asynq.SkipRetry)
	}

	reported, err := p.reporter.ReportPending(ctx, payload.CompanyID)
	if err != nil {
		p.log.Error().Err(err).Str("company_id", payload.CompanyID).Int("informados", len(reported)).
			Msg("informe CAEA interrumpido")
		if !retryable(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	p.log.Info().Str("company_id", payload.CompanyID).Int("informados", len(reported)).Msg("informe CAEA completo")
	return nil
}

// retryable: solo las fallas de comunicación con AFIP o de infraestructura.
func retryable(err error) bool {
	var verr *domain.AfipValidationError
	if errors.As(err, &verr) {
		return verr.Kind == domain.FailureTransport || verr.Kind == domain.FailureUnknown
	}
	switch {
	case errors.Is(err, domain.ErrConfiguration),
		errors.Is(err, domain.ErrMissingTimestamp),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotFound):
		return false
	}
	return true
}

// NewServeMux registra los handlers del worker.
func NewServeMux(p *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCAEAReport, p.HandleCAEAReport)
	return mux
}

// NewServer servidor asynq que atiende solo la cola AFIP. concurrency <= 0 usa 1.
func NewServer(opt asynq.RedisConnOpt, concurrency int, log *logger.Logger) *asynq.Server {
	if log == nil {
		log = logger.Nop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	l := log.WithComponent("asynq")
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueAFIP: 1},
		Logger:      &asynqLogger{log: l},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			l.Error().Err(err).Str("type", task.Type()).Bytes("payload", task.Payload()).Msg("tarea fallida")
		}),
	})
}

// asynqLogger adapta el logger de la aplicación a asynq.Logger.
type asynqLogger struct{ log *logger.Logger }

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
