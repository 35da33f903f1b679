package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/afipws-caea/internal/domain"
	"github.com/jhoicas/afipws-caea/internal/domain/afip"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
)

func TestBuildPayload_FacturaA(t *testing.T) {
	db := newFakeDB()
	p, err := BuildPayload(payloadInput(db, stampedInvoice("inv-1")))
	require.NoError(t, err)

	c := p.Comprobante
	assert.Equal(t, 1, c.Concepto)
	assert.Equal(t, "80", c.TipoDoc)
	assert.Equal(t, "30500010912", c.NroDoc)
	assert.Equal(t, 1, c.TipoCbte)
	assert.Equal(t, 5, c.PuntoVta)
	assert.EqualValues(t, 123, c.CbtDesde)
	assert.EqualValues(t, 123, c.CbtHasta)
	assert.Equal(t, "121.00", c.ImpTotal)
	assert.Equal(t, "0.00", c.ImpTotConc)
	assert.Equal(t, "100.00", c.ImpNeto)
	assert.Equal(t, "21.00", c.ImpIVA)
	assert.Equal(t, "0.00", c.ImpTrib)
	assert.Equal(t, "0.00", c.ImpOpEx)
	assert.Equal(t, "20240110", c.FechaCbte)
	assert.Equal(t, "PES", c.MonedaID)
	assert.Equal(t, "1", c.MonedaCtz)
	assert.Equal(t, caeaCode, c.CAEA)
	assert.Equal(t, "20240110153000", c.CbteFchHsGen)

	assert.Empty(t, c.FechaVencPago, "productos sin MiPyME no llevan vencimiento")
	assert.Empty(t, c.FechaServDesde)
	assert.Empty(t, p.Opcionales)
	assert.Empty(t, p.Tributos)
	assert.Empty(t, p.CbtesAsoc)
}

func TestBuildPayload_ReceptorNoIdentificado(t *testing.T) {
	db := newFakeDB()
	inv := stampedInvoice("inv-1")
	inv.PartnerID = "p-cf"
	p, err := BuildPayload(payloadInput(db, inv))
	require.NoError(t, err)
	assert.Equal(t, "99", p.Comprobante.TipoDoc)
	assert.Equal(t, "0", p.Comprobante.NroDoc)
}

func TestBuildPayload_MiPyMESiempreLlevaVencimiento(t *testing.T) {
	db := newFakeDB()
	due := time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)
	inv := stampedInvoice("inv-1")
	inv.DocumentTypeCode = 201
	inv.DueDate = &due
	inv.PartnerBankAccount = "0110599520000001234567"

	in := payloadInput(db, inv)
	in.FCETransmission = "SCA"
	p, err := BuildPayload(in)
	require.NoError(t, err)

	assert.Equal(t, "20240209", p.Comprobante.FechaVencPago, "concepto productos pero MiPyME")
	assert.Equal(t, []afip.Opcional{
		{ID: "2101", Valor: "0110599520000001234567"},
		{ID: "27", Valor: "SCA"},
	}, p.Opcionales)
}

func TestBuildPayload_MiPyMESinTransmision(t *testing.T) {
	db := newFakeDB()
	inv := stampedInvoice("inv-1")
	inv.DocumentTypeCode = 206
	p, err := BuildPayload(payloadInput(db, inv))
	require.NoError(t, err)

	assert.Equal(t, "20240110", p.Comprobante.FechaVencPago, "sin vencimiento usa la fecha del comprobante")
	require.Len(t, p.Opcionales, 1)
	assert.Equal(t, pkgafip.OptionalCBU, p.Opcionales[0].ID)
}

func TestBuildPayload_NotaFCEServicios(t *testing.T) {
	db := newFakeDB()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	inv := stampedInvoice("inv-1")
	inv.DocumentTypeCode = 203
	inv.Concept = pkgafip.ConceptServices
	inv.ServiceStart, inv.ServiceEnd = &start, &end
	inv.FCECancellation = true

	p, err := BuildPayload(payloadInput(db, inv))
	require.NoError(t, err)

	assert.Empty(t, p.Comprobante.FechaVencPago, "las notas FCE no llevan vencimiento")
	assert.Equal(t, "20240101", p.Comprobante.FechaServDesde)
	assert.Equal(t, "20240131", p.Comprobante.FechaServHasta)
	assert.Equal(t, []afip.Opcional{{ID: "22", Valor: "S"}}, p.Opcionales)
}

func TestBuildPayload_ServiciosLlevaVencimiento(t *testing.T) {
	db := newFakeDB()
	inv := stampedInvoice("inv-1")
	inv.Concept = pkgafip.ConceptProductsAndServices
	p, err := BuildPayload(payloadInput(db, inv))
	require.NoError(t, err)
	assert.Equal(t, "20240110", p.Comprobante.FechaVencPago)
}

func TestBuildPayload_FacturaC_NetoEsNoGravado(t *testing.T) {
	db := newFakeDB()
	inv := stampedInvoice("inv-1")
	inv.DocumentTypeCode = 11
	inv.DocumentLetter = "C"
	inv.AmountTotal = decimal.RequireFromString("250.50")
	inv.AmountUntaxed = decimal.RequireFromString("250.50")
	noCorresponde := entity.Tax{ID: "t0", Group: entity.TaxGroup{ID: "g0", Kind: entity.TaxGroupVAT, VATAfipCode: "0"}}
	inv.Lines = []*entity.InvoiceLine{
		{ID: "l1", PriceSubtotal: decimal.RequireFromString("250.50"), Taxes: []entity.Tax{noCorresponde}},
	}

	p, err := BuildPayload(payloadInput(db, inv))
	require.NoError(t, err)
	assert.Equal(t, "250.50", p.Comprobante.ImpNeto)
	assert.Equal(t, "0.00", p.Comprobante.ImpIVA)
}

func TestBuildPayload_TributosPorGrupo(t *testing.T) {
	db := newFakeDB()
	iibb := entity.Tax{ID: "t-iibb", Name: "Perc. IIBB", Group: entity.TaxGroup{
		ID: "g-iibb", Name: "Percepción IIBB", Kind: entity.TaxGroupNotVAT, TributeAfipCode: "7"}}
	interno := entity.Tax{ID: "t-int", Name: "Imp. interno", Group: entity.TaxGroup{
		ID: "g-int", Name: "Impuesto interno", Kind: entity.TaxGroupNotVAT}}

	inv := stampedInvoice("inv-1")
	inv.Lines = []*entity.InvoiceLine{
		{ID: "l1", PriceSubtotal: decimal.RequireFromString("100"), Taxes: []entity.Tax{vat21, iibb}},
		{ID: "l2", PriceSubtotal: decimal.RequireFromString("50"), Taxes: []entity.Tax{vat21, iibb}},
		{ID: "l3", PriceSubtotal: decimal.RequireFromString("30"), Taxes: []entity.Tax{vat21}},
		{ID: "l4", PriceSubtotal: decimal.RequireFromString("37.80"), TaxLine: &vat21},
		{ID: "l5", PriceSubtotal: decimal.RequireFromString("4.50"), TaxLine: &iibb},
		{ID: "l6", PriceSubtotal: decimal.RequireFromString("1"), TaxLine: &interno},
	}

	p, err := BuildPayload(payloadInput(db, inv))
	require.NoError(t, err)
	assert.Equal(t, []afip.Tributo{
		{ID: "7", Desc: "Percepción IIBB", BaseImp: "150.00", Alic: "0", Importe: "4.50"},
	}, p.Tributos, "un tributo por grupo con código; el grupo sin código no se informa")
	assert.Equal(t, "5.50", p.Comprobante.ImpTrib)
}

func TestBuildPayload_SinFechaDeGeneracion(t *testing.T) {
	db := newFakeDB()
	inv := stampedInvoice("inv-1")
	inv.CAEAPostedAt = nil

	_, err := BuildPayload(payloadInput(db, inv))
	assert.ErrorIs(t, err, domain.ErrMissingTimestamp)
}

func TestBuildPayload_SinCodigoNoAgregaCAEA(t *testing.T) {
	db := newFakeDB()
	inv := newInvoice("inv-1", "j-caea")
	inv.DocumentTypeCode = 201

	p, err := BuildPayload(payloadInput(db, inv))
	require.NoError(t, err, "sin código no se exige fecha de generación")
	assert.Empty(t, p.Comprobante.CAEA)
	assert.Empty(t, p.Opcionales)
}

func TestBuildPayload_ComprobanteAsociado(t *testing.T) {
	db := newFakeDB()
	related := newInvoice("inv-orig", "j-caea")
	related.DocumentNumber = "00005-00000100"
	related.InvoiceDate = time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		journal string
		fecha   string
	}{
		{"j-caea", "20231228"},
		{"j-mtxca", "2023-12-28"},
		{"j-fex", ""},
	}
	for _, tc := range cases {
		t.Run(tc.journal, func(t *testing.T) {
			inv := stampedInvoice("inv-nc")
			inv.JournalID = tc.journal
			inv.DocumentTypeCode = 3
			inv.RelatedInvoiceID = related.ID
			in := payloadInput(db, inv)
			in.Related = related

			p, err := BuildPayload(in)
			require.NoError(t, err)
			require.Len(t, p.CbtesAsoc, 1)
			assert.Equal(t, afip.CbteAsoc{Tipo: 1, PtoVta: 5, Nro: 100, Cuit: "20123456786", Fecha: tc.fecha}, p.CbtesAsoc[0])
		})
	}
}

func TestBuildPayload_WSMTXCAFechasISO(t *testing.T) {
	db := newFakeDB()
	inv := stampedInvoice("inv-1")
	inv.JournalID = "j-mtxca"
	inv.Concept = pkgafip.ConceptServices

	p, err := BuildPayload(payloadInput(db, inv))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", p.Comprobante.FechaVencPago)
	assert.Empty(t, p.Comprobante.CAEA, "los datos CAEA solo viajan por WSFE")
}

func TestBuildPayload_NumeroInvalido(t *testing.T) {
	db := newFakeDB()
	inv := stampedInvoice("inv-1")
	inv.DocumentNumber = "123"
	_, err := BuildPayload(payloadInput(db, inv))
	assert.Error(t, err)
}

func TestBuildCAEPayload_SinDatosCAEA(t *testing.T) {
	db := newFakeDB()
	inv := newInvoice("inv-1", "j-normal")
	inv.DocumentTypeCode = 201

	p, err := BuildCAEPayload(payloadInput(db, inv))
	require.NoError(t, err)
	assert.Empty(t, p.Comprobante.CAEA)
	assert.Empty(t, p.Comprobante.CbteFchHsGen)
	require.Len(t, p.Opcionales, 1, "los opcionales MiPyME se informan también con CAE")
}
