package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/afipws-caea/internal/domain/afip"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/internal/infrastructure/afipws"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
)

// ──────────────────────────────────────────────────────────────────────────────
// Base de datos en memoria
// ──────────────────────────────────────────────────────────────────────────────

type fakeDB struct {
	invoices        map[string]entity.Invoice
	messages        map[string][]string
	journals        map[string]*entity.Journal
	companies       map[string]*entity.Company
	partners        map[string]*entity.Partner
	caea            *entity.CAEA
	params          map[string]string
	authUpdates     int
	isolatedCommits int
	failAuthUpdate  error
	// committed comprobantes confirmados por RunIsolated durante el RunBilling en curso.
	committed map[string]entity.Invoice
}

func (db *fakeDB) repos() Repos {
	return Repos{
		Invoices:  &fakeInvoiceRepo{db: db},
		Journals:  &fakeJournalRepo{db: db},
		CAEAs:     &fakeCAEARepo{db: db},
		Companies: &fakeCompanyRepo{db: db},
		Partners:  &fakePartnerRepo{db: db},
	}
}

// stored devuelve una copia del comprobante tal como quedó persistido.
func (db *fakeDB) stored(id string) entity.Invoice { return db.invoices[id] }

type fakeInvoiceRepo struct {
	db      *fakeDB
	written map[string]bool // solo en RunIsolated
}

func (r *fakeInvoiceRepo) mark(id string) {
	if r.written != nil {
		r.written[id] = true
	}
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	v, ok := r.db.invoices[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *fakeInvoiceRepo) ListByIDs(ctx context.Context, ids []string) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for _, id := range ids {
		if inv, _ := r.GetByID(ctx, id); inv != nil {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListPendingCAEAReport(ctx context.Context, companyID string) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	for id, v := range r.db.invoices {
		if v.CompanyID == companyID && v.AuthMode == pkgafip.AuthModeCAEA && v.AuthCode != "" && !v.CAEAReported {
			inv, _ := r.GetByID(ctx, id)
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) UpdateAuthorization(_ context.Context, inv *entity.Invoice) error {
	if r.db.failAuthUpdate != nil {
		return r.db.failAuthUpdate
	}
	r.db.invoices[inv.ID] = *inv
	r.db.authUpdates++
	r.mark(inv.ID)
	return nil
}

func (r *fakeInvoiceRepo) UpdatePosting(_ context.Context, inv *entity.Invoice) error {
	v := r.db.invoices[inv.ID]
	v.JournalID, v.State = inv.JournalID, inv.State
	r.db.invoices[inv.ID] = v
	r.mark(inv.ID)
	return nil
}

func (r *fakeInvoiceRepo) AddMessage(_ context.Context, invoiceID, body string) error {
	r.db.messages[invoiceID] = append(r.db.messages[invoiceID], body)
	return nil
}

type fakeJournalRepo struct{ db *fakeDB }

func (r *fakeJournalRepo) GetByID(_ context.Context, id string) (*entity.Journal, error) {
	return r.db.journals[id], nil
}

type fakeCAEARepo struct{ db *fakeDB }

func (r *fakeCAEARepo) GetActive(_ context.Context, companyID string, day time.Time) (*entity.CAEA, error) {
	if c := r.db.caea; c != nil && c.CompanyID == companyID && c.IsActiveOn(day) {
		return c, nil
	}
	return nil, nil
}

type fakeCompanyRepo struct{ db *fakeDB }

func (r *fakeCompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	return r.db.companies[id], nil
}

type fakePartnerRepo struct{ db *fakeDB }

func (r *fakePartnerRepo) GetByID(_ context.Context, id string) (*entity.Partner, error) {
	return r.db.partners[id], nil
}

func (r *fakePartnerRepo) UpdateMiPyME(_ context.Context, p *entity.Partner) error {
	r.db.partners[p.ID] = p
	return nil
}

type fakeParams struct{ db *fakeDB }

func (r *fakeParams) GetParam(_ context.Context, key, def string) (string, error) {
	if v, ok := r.db.params[key]; ok {
		return v, nil
	}
	return def, nil
}

// fakeTx simula rollback restaurando un snapshot. Lo confirmado por RunIsolated
// sobrevive al rollback de un RunBilling en curso.
type fakeTx struct{ db *fakeDB }

func (t *fakeTx) RunBilling(_ context.Context, fn func(repos Repos) error) error {
	snapshot := make(map[string]entity.Invoice, len(t.db.invoices))
	for k, v := range t.db.invoices {
		snapshot[k] = v
	}
	t.db.committed = map[string]entity.Invoice{}
	if err := fn(t.db.repos()); err != nil {
		for k, v := range t.db.committed {
			snapshot[k] = v
		}
		t.db.invoices = snapshot
		return err
	}
	return nil
}

func (t *fakeTx) RunIsolated(_ context.Context, fn func(repos Repos) error) error {
	repos := t.db.repos()
	invoices := &fakeInvoiceRepo{db: t.db, written: map[string]bool{}}
	repos.Invoices = invoices
	if err := fn(repos); err != nil {
		return err
	}
	if t.db.committed != nil {
		for id := range invoices.written {
			t.db.committed[id] = t.db.invoices[id]
		}
	}
	t.db.isolatedCommits++
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Sesión AFIP
// ──────────────────────────────────────────────────────────────────────────────

type fakeSession struct {
	cbte     *afip.Comprobante
	opts     []afip.Opcional
	tributos []afip.Tributo
	asocs    []afip.CbteAsoc

	resp     afipws.Response
	err      error
	caeaCall int
	caeCall  int
}

func (s *fakeSession) CreateInvoice(c afip.Comprobante) {
	s.cbte = &c
	s.opts, s.tributos, s.asocs = nil, nil, nil
}
func (s *fakeSession) AddOptional(o afip.Opcional)   { s.opts = append(s.opts, o) }
func (s *fakeSession) AddTribute(t afip.Tributo)     { s.tributos = append(s.tributos, t) }
func (s *fakeSession) AddAssociated(a afip.CbteAsoc) { s.asocs = append(s.asocs, a) }
func (s *fakeSession) Response() afipws.Response     { return s.resp }

func (s *fakeSession) RegisterCAEAInformative(context.Context) (string, error) {
	s.caeaCall++
	if s.err != nil {
		return "", s.err
	}
	return s.resp.CAEA, nil
}

func (s *fakeSession) RequestCAE(context.Context) (string, error) {
	s.caeCall++
	if s.err != nil {
		return "", s.err
	}
	return s.resp.CAE, nil
}

// fakeSessions entrega las sesiones en orden; la última se repite.
type fakeSessions struct {
	sessions []*fakeSession
	connects int
	lastCUIT string
	lastWS   string
}

func (f *fakeSessions) Connect(_ context.Context, cuit, service string) (afipws.Session, error) {
	i := f.connects
	if i >= len(f.sessions) {
		i = len(f.sessions) - 1
	}
	f.connects++
	f.lastCUIT, f.lastWS = cuit, service
	return f.sessions[i], nil
}

func approvedCAEA(code string) *fakeSession {
	return &fakeSession{resp: afipws.Response{
		CAEA: code, Resultado: pkgafip.ResultApproved, EmisionTipo: pkgafip.AuthModeCAEA,
		Obs: "", ErrMsg: "", XMLRequest: "<req/>", XMLResponse: "<resp/>",
	}}
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

const (
	companyID = "11111111-1111-1111-1111-111111111111"
	caeaCode  = "31234567890123"
)

var (
	fixedNow    = time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC)
	invoiceDate = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
)

func newFakeDB() *fakeDB {
	return &fakeDB{
		invoices: map[string]entity.Invoice{},
		messages: map[string][]string{},
		journals: map[string]*entity.Journal{
			"j-normal": {ID: "j-normal", CompanyID: companyID, POSNumber: 1, POSSystem: pkgafip.POSSystemNormal, AfipWS: pkgafip.WSFE, CAEAJournalID: "j-caea"},
			"j-caea":   {ID: "j-caea", CompanyID: companyID, POSNumber: 5, POSSystem: pkgafip.POSSystemCAEA, AfipWS: pkgafip.WSFE},
			"j-solo":   {ID: "j-solo", CompanyID: companyID, POSNumber: 2, POSSystem: pkgafip.POSSystemNormal, AfipWS: pkgafip.WSFE},
			"j-sin-ws": {ID: "j-sin-ws", CompanyID: companyID, POSNumber: 6, POSSystem: pkgafip.POSSystemCAEA},
			"j-fex":    {ID: "j-fex", CompanyID: companyID, POSNumber: 7, POSSystem: pkgafip.POSSystemCAEA, AfipWS: pkgafip.WSFEX},
			"j-mtxca":  {ID: "j-mtxca", CompanyID: companyID, POSNumber: 8, POSSystem: pkgafip.POSSystemCAEA, AfipWS: pkgafip.WSMTXCA},
		},
		companies: map[string]*entity.Company{
			companyID: {ID: companyID, Name: "Empresa SA", CUIT: "20123456786"},
		},
		partners: map[string]*entity.Partner{
			"p-cuit": {ID: "p-cuit", Name: "Cliente SRL", VAT: "30500010912", IdentificationAfipCode: "80"},
			"p-cf":   {ID: "p-cf", Name: "Consumidor final"},
		},
		caea: &entity.CAEA{
			ID: "caea-1", CompanyID: companyID, Code: caeaCode, Period: "202401", Order: 1,
			DateFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			State:    entity.CAEAStateActive,
		},
		params: map[string]string{ParamCAEAState: "active"},
	}
}

var vat21 = entity.Tax{ID: "t-iva21", Name: "IVA 21%", Group: entity.TaxGroup{ID: "g-iva21", Name: "IVA 21%", Kind: entity.TaxGroupVAT, VATAfipCode: "5"}}

// newInvoice factura A de productos por 100 + IVA 21.
func newInvoice(id, journalID string) *entity.Invoice {
	return &entity.Invoice{
		ID:               id,
		CompanyID:        companyID,
		JournalID:        journalID,
		PartnerID:        "p-cuit",
		DocumentTypeCode: 1,
		DocumentLetter:   "A",
		DocumentNumber:   "00005-00000123",
		Concept:          pkgafip.ConceptProducts,
		CurrencyCode:     "PES",
		CurrencyRate:     decimal.NewFromInt(1),
		InvoiceDate:      invoiceDate,
		AmountTotal:      decimal.RequireFromString("121"),
		AmountUntaxed:    decimal.RequireFromString("100"),
		State:            entity.InvoiceStateDraft,
		Lines: []*entity.InvoiceLine{
			{ID: id + "-l1", InvoiceID: id, Name: "Producto", PriceSubtotal: decimal.RequireFromString("100"), Taxes: []entity.Tax{vat21}},
			{ID: id + "-l2", InvoiceID: id, Name: "IVA 21%", PriceSubtotal: decimal.RequireFromString("21"), TaxLine: &vat21},
		},
	}
}

// stampedInvoice comprobante ya sellado con CAEA, pendiente de informar.
func stampedInvoice(id string) *entity.Invoice {
	inv := newInvoice(id, "j-caea")
	due := inv.InvoiceDate
	posted := fixedNow
	inv.State = entity.InvoiceStatePosted
	inv.AuthMode = pkgafip.AuthModeCAEA
	inv.AuthCode = caeaCode
	inv.AuthCodeDue = &due
	inv.CAEAPostedAt = &posted
	inv.CAEAID = "caea-1"
	return inv
}

func (db *fakeDB) put(invs ...*entity.Invoice) {
	for _, inv := range invs {
		db.invoices[inv.ID] = *inv
	}
}

func payloadInput(db *fakeDB, inv *entity.Invoice) PayloadInput {
	return PayloadInput{
		Invoice: inv,
		Journal: db.journals[inv.JournalID],
		Company: db.companies[companyID],
		Partner: db.partners[inv.PartnerID],
	}
}
