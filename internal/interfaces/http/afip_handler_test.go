package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/afipws-caea/internal/application/dto"
	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	apphttp "github.com/jhoicas/afipws-caea/internal/interfaces/http"
)

const (
	invoiceA = "0b6f6a1e-3c1d-4f57-9f0e-7d4d8b1f1a01"
	invoiceB = "0b6f6a1e-3c1d-4f57-9f0e-7d4d8b1f1a02"
	partnerA = "5c3d2a10-8e7f-4d1b-a0c2-3b4e5f6a7b81"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakePoster struct {
	companyID string
	ids       []string
	out       []*entity.Invoice
	err       error
}

func (f *fakePoster) PostInvoices(_ context.Context, companyID string, ids []string) ([]*entity.Invoice, error) {
	f.companyID, f.ids = companyID, ids
	return f.out, f.err
}

func (f *fakePoster) RequestCAEA(ctx context.Context, companyID string, ids []string) ([]*entity.Invoice, error) {
	return f.PostInvoices(ctx, companyID, ids)
}

func (f *fakePoster) GetAfipStatus(_ context.Context, companyID, id string) (*entity.Invoice, error) {
	f.companyID, f.ids = companyID, []string{id}
	if f.err != nil {
		return nil, f.err
	}
	return f.out[0], nil
}

type fakeSubmitter struct {
	ids []string
	out []*entity.Invoice
	err error
}

func (f *fakeSubmitter) Submit(_ context.Context, _ string, ids []string) ([]*entity.Invoice, error) {
	f.ids = ids
	return f.out, f.err
}

type fakeEnqueuer struct {
	companyID string
	err       error
}

func (f *fakeEnqueuer) EnqueueCAEAReport(_ context.Context, companyID string) (*asynq.TaskInfo, error) {
	f.companyID = companyID
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: "afip"}, nil
}

type fakeMiPyME struct {
	out []*entity.Partner
	err error
}

func (f *fakeMiPyME) RefreshMiPyMEThreshold(_ context.Context, _ string, _ []string) ([]*entity.Partner, error) {
	return f.out, f.err
}

type testDeps struct {
	poster    *fakePoster
	submitter *fakeSubmitter
	enqueuer  *fakeEnqueuer
	mipyme    *fakeMiPyME
}

func newTestApp(d testDeps) *fiber.App {
	if d.poster == nil {
		d.poster = &fakePoster{}
	}
	if d.submitter == nil {
		d.submitter = &fakeSubmitter{}
	}
	if d.mipyme == nil {
		d.mipyme = &fakeMiPyME{}
	}
	app := fiber.New()
	// un *fakeEnqueuer nil no es una interfaz nil
	afip := apphttp.NewAfipHandler(d.poster, d.submitter, nil, nil)
	if d.enqueuer != nil {
		afip = apphttp.NewAfipHandler(d.poster, d.submitter, d.enqueuer, nil)
	}
	apphttp.Router(app, apphttp.RouterDeps{
		Afip:      afip,
		Partners:  apphttp.NewPartnerHandler(d.mipyme),
		JWTSecret: testJWTSecret,
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, dto.ErrorResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var errBody dto.ErrorResponse
	if resp.StatusCode >= 400 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	}
	return resp, errBody
}

func idsBody(ids ...string) string {
	b, _ := json.Marshal(dto.InvoiceIDsRequest{InvoiceIDs: ids})
	return string(b)
}

// ──────────────────────────────────────────────────────────────────────────────
// Lotes
// ──────────────────────────────────────────────────────────────────────────────

func TestPostInvoices_OK(t *testing.T) {
	poster := &fakePoster{out: []*entity.Invoice{{ID: invoiceA, AuthMode: "CAEA", AuthCode: "31234567890123"}}}
	app := newTestApp(testDeps{poster: poster})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/invoices/post", idsBody(invoiceA))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.AfipBatchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Invoices, 1)
	assert.Equal(t, "31234567890123", out.Invoices[0].AuthCode)
	assert.Equal(t, testCompanyID, poster.companyID, "la empresa sale del token")
	assert.Equal(t, []string{invoiceA}, poster.ids)
}

func TestPostInvoices_SinToken(t *testing.T) {
	app := newTestApp(testDeps{})
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/post", strings.NewReader(idsBody(invoiceA)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostInvoices_Validacion(t *testing.T) {
	app := newTestApp(testDeps{})

	cases := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{"body inválido", "{", "INVALID_BODY", ""},
		{"lista vacía", `{"invoice_ids":[]}`, "VALIDATION", "invoice_ids"},
		{"id no uuid", idsBody("inv-1"), "VALIDATION", "invoice_ids[0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/api/invoices/post", tc.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.code, body.Code)
			if tc.field != "" {
				assert.Contains(t, body.Fields, tc.field)
			}
		})
	}
}

func TestPostInvoices_MapeoDeErrores(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"configuración", &domain.ConfigurationError{InvoiceID: invoiceA}, http.StatusUnprocessableEntity, "AFIP_CONFIGURATION"},
		{"CUIT sin certificado", fmt.Errorf("wsaa: sin certificado para la CUIT 30500010912: %w", domain.ErrConfiguration), http.StatusUnprocessableEntity, "AFIP_CONFIGURATION"},
		{"sin CAEA activo", fmt.Errorf("comprobante x: %w", domain.ErrNoActiveCAEA), http.StatusConflict, "NO_ACTIVE_CAEA"},
		{"rechazo AFIP", &domain.AfipValidationError{Kind: domain.FailureRejected, Message: "obs"}, http.StatusBadGateway, "AFIP_VALIDATION"},
		{"sin fecha", domain.ErrMissingTimestamp, http.StatusUnprocessableEntity, "MISSING_TIMESTAMP"},
		{"no encontrado", domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"otra empresa", domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"entrada inválida", domain.ErrInvalidInput, http.StatusBadRequest, "VALIDATION"},
		{"interno", fmt.Errorf("db caída"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(testDeps{poster: &fakePoster{err: tc.err}})
			resp, body := doJSON(t, app, http.MethodPost, "/api/invoices/post", idsBody(invoiceA, invoiceB))
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestReportCAEA_RechazoIncluyeTipo(t *testing.T) {
	sub := &fakeSubmitter{err: &domain.AfipValidationError{Kind: domain.FailureTransport, Message: "Falla SOAP soap:Server: caído"}}
	app := newTestApp(testDeps{submitter: sub})

	resp, body := doJSON(t, app, http.MethodPost, "/api/invoices/caea/report", idsBody(invoiceA))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "transport", body.Fields["kind"])
	assert.Contains(t, body.Message, "Falla SOAP soap:Server: caído")
	assert.Equal(t, []string{invoiceA}, sub.ids)
}

func TestReportCAEA_LoteCortado_DevuelveConfirmados(t *testing.T) {
	sub := &fakeSubmitter{
		out: []*entity.Invoice{{ID: invoiceA, AuthMode: "CAEA", AuthCode: "31234567890123", CAEAReported: true}},
		err: &domain.AfipValidationError{Kind: domain.FailureRejected, Message: "10015: fecha fuera de rango"},
	}
	app := newTestApp(testDeps{submitter: sub})

	resp, body := doJSON(t, app, http.MethodPost, "/api/invoices/caea/report", idsBody(invoiceA, invoiceB))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "AFIP_VALIDATION", body.Code)
	require.Len(t, body.Invoices, 1)
	assert.Equal(t, invoiceA, body.Invoices[0].ID)
	assert.True(t, body.Invoices[0].CAEAReported)
}

func TestPostInvoices_ErrorSinConfirmados_OmiteInvoices(t *testing.T) {
	app := newTestApp(testDeps{poster: &fakePoster{err: domain.ErrNoActiveCAEA}})
	resp, body := doJSON(t, app, http.MethodPost, "/api/invoices/post", idsBody(invoiceA))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Nil(t, body.Invoices)
}

func TestRequestCAEA_OK(t *testing.T) {
	poster := &fakePoster{out: []*entity.Invoice{{ID: invoiceA}, {ID: invoiceB}}}
	app := newTestApp(testDeps{poster: poster})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/invoices/caea/request", idsBody(invoiceA, invoiceB))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{invoiceA, invoiceB}, poster.ids)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consulta y cola
// ──────────────────────────────────────────────────────────────────────────────

func TestGetStatus(t *testing.T) {
	poster := &fakePoster{out: []*entity.Invoice{{ID: invoiceA, State: "posted", CAEAReported: true}}}
	app := newTestApp(testDeps{poster: poster})

	resp, _ := doJSON(t, app, http.MethodGet, "/api/invoices/"+invoiceA+"/afip", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.AfipStatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, invoiceA, out.ID)
	assert.True(t, out.CAEAReported)
	assert.Equal(t, []string{invoiceA}, poster.ids)
}

func TestEnqueueReport(t *testing.T) {
	enq := &fakeEnqueuer{}
	app := newTestApp(testDeps{enqueuer: enq})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/caea/report/enqueue", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out dto.EnqueueResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "task-1", out.TaskID)
	assert.Equal(t, testCompanyID, enq.companyID)
}

func TestEnqueueReport_Errores(t *testing.T) {
	resp, body := doJSON(t, newTestApp(testDeps{}), http.MethodPost, "/api/caea/report/enqueue", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "QUEUE_DISABLED", body.Code)

	app := newTestApp(testDeps{enqueuer: &fakeEnqueuer{}})
	resp, body = doJSON(t, app, http.MethodPost, "/api/caea/report/enqueue", `{"company_id":"`+partnerA+`"}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "no se puede encolar para otra empresa")

	app = newTestApp(testDeps{enqueuer: &fakeEnqueuer{err: fmt.Errorf("encolar: %w", asynq.ErrDuplicateTask)}})
	resp, body = doJSON(t, app, http.MethodPost, "/api/caea/report/enqueue", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_ENQUEUED", body.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Receptores
// ──────────────────────────────────────────────────────────────────────────────

func TestRefreshMiPyME(t *testing.T) {
	mipyme := &fakeMiPyME{out: []*entity.Partner{{
		ID: partnerA, Name: "Cliente SRL", VAT: "30500010912",
		MiPyMERequired: true, MiPyMEFromAmount: decimal.RequireFromString("3958316"),
	}}}
	app := newTestApp(testDeps{mipyme: mipyme})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/partners/mipyme", `{"partner_ids":["`+partnerA+`"]}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []dto.PartnerMiPyMEResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	assert.True(t, out[0].MiPyMERequired)
	assert.True(t, out[0].MiPyMEFromAmount.Equal(decimal.NewFromInt(3958316)))
}
