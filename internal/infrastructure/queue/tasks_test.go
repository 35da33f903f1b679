package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/infrastructure/queue"
	"github.com/jhoicas/afipws-caea/pkg/config"
)

type fakeReporter struct {
	companyID string
	out       []*entity.Invoice
	err       error
}

func (f *fakeReporter) ReportPending(_ context.Context, companyID string) ([]*entity.Invoice, error) {
	f.companyID = companyID
	return f.out, f.err
}

func reportTask(t *testing.T, companyID string) *asynq.Task {
	t.Helper()
	task, err := queue.NewCAEAReportTask(companyID)
	require.NoError(t, err)
	return task
}

func TestNewCAEAReportTask(t *testing.T) {
	task := reportTask(t, "c-1")
	assert.Equal(t, queue.TypeCAEAReport, task.Type())

	var p queue.CAEAReportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "c-1", p.CompanyID)

	_, err := queue.NewCAEAReportTask("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHandleCAEAReport_OK(t *testing.T) {
	rep := &fakeReporter{out: []*entity.Invoice{{ID: "inv-1"}}}
	p := queue.NewProcessor(rep, nil)

	require.NoError(t, p.HandleCAEAReport(context.Background(), reportTask(t, "c-1")))
	assert.Equal(t, "c-1", rep.companyID)
}

func TestHandleCAEAReport_PayloadInvalido(t *testing.T) {
	p := queue.NewProcessor(&fakeReporter{}, nil)

	err := p.HandleCAEAReport(context.Background(), asynq.NewTask(queue.TypeCAEAReport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = p.HandleCAEAReport(context.Background(), asynq.NewTask(queue.TypeCAEAReport, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleCAEAReport_Reintentos(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		retry bool
	}{
		{"configuración", &domain.ConfigurationError{InvoiceID: "inv-1"}, false},
		{"sin fecha de generación", domain.ErrMissingTimestamp, false},
		{"rechazo AFIP", &domain.AfipValidationError{Kind: domain.FailureRejected, Message: "10016"}, false},
		{"excepción de sesión", &domain.AfipValidationError{Kind: domain.FailureRemote, Message: "x"}, false},
		{"falla SOAP", &domain.AfipValidationError{Kind: domain.FailureTransport, Message: "Falla SOAP"}, true},
		{"base de datos", errors.New("conn reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := queue.NewProcessor(&fakeReporter{err: tc.err}, nil)
			err := p.HandleCAEAReport(context.Background(), reportTask(t, "c-1"))
			require.Error(t, err)
			assert.Equal(t, !tc.retry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestRedisOpt(t *testing.T) {
	opt := queue.RedisOpt(config.RedisConfig{Addr: "redis:6379", Password: "pw", DB: 2})
	assert.Equal(t, asynq.RedisClientOpt{Addr: "redis:6379", Password: "pw", DB: 2}, opt)
}

func TestNewServeMux_Registra(t *testing.T) {
	rep := &fakeReporter{}
	mux := queue.NewServeMux(queue.NewProcessor(rep, nil))

	require.NoError(t, mux.ProcessTask(context.Background(), reportTask(t, "c-9")))
	assert.Equal(t, "c-9", rep.companyID)
}
