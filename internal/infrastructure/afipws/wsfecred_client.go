package afipws

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
)

const (
	nsFECred        = "http://ar.gob.afip.wsfecred/FECredService/"
	wsfecredURLHomo = "https://fwshomo.afip.gov.ar/wsfecred/FECredService"
	wsfecredURLProd = "https://serviciosjava.afip.gob.ar/wsfecred/FECredService"
)

// MontoObligado resultado de consultarMontoObligadoRecepcion.
type MontoObligado struct {
	Obligado    bool
	MontoDesde  decimal.Decimal
	XMLRequest  string
	XMLResponse string
}

// WSFECredClient cliente de Factura de Crédito Electrónica MiPyME (WSFECRED).
type WSFECredClient struct {
	soap  *soapCaller
	url   string
	auth  Authenticator
	cache TicketCache
	now   func() time.Time
}

// NewWSFECredClient construye el cliente; url vacío usa el endpoint del ambiente.
func NewWSFECredClient(env, url string, auth Authenticator, cache TicketCache, timeout time.Duration) *WSFECredClient {
	if url == "" {
		url = wsfecredURLHomo
		if env == EnvProd {
			url = wsfecredURLProd
		}
	}
	if cache == nil {
		cache = NewMemoryTicketCache()
	}
	return &WSFECredClient{soap: newSOAPCaller(timeout), url: url, auth: auth, cache: cache, now: time.Now}
}

// ConsultarMontoObligadoRecepcion indica si la CUIT receptora está obligada a
// recibir FCE MiPyME y desde qué monto. representada es la CUIT emisora.
func (c *WSFECredClient) ConsultarMontoObligadoRecepcion(ctx context.Context, representada, cuit string) (*MontoObligado, error) {
	t, err := c.cache.Get(ctx, representada, pkgafip.WSFECRED)
	if err != nil || !t.Valid(c.now()) {
		t, err = c.auth.Login(ctx, representada, pkgafip.WSFECRED)
		if err != nil {
			return nil, fmt.Errorf("wsfecred: login: %w", err)
		}
		_ = c.cache.Put(ctx, representada, pkgafip.WSFECRED, t)
	}

	doc, body := newEnvelope()
	op := body.CreateElement("consultarMontoObligadoRecepcionRequest")
	op.CreateAttr("xmlns", nsFECred)
	auth := op.CreateElement("authRequest")
	addText(auth, "token", t.Token)
	addText(auth, "sign", t.Sign)
	addText(auth, "cuitRepresentada", representada)
	addText(op, "cuitConsultada", pkgafip.NormalizeCUIT(cuit))
	addText(op, "fechaEmision", c.now().Format(pkgafip.DateISO))

	reqXML, respXML, err := c.soap.call(ctx, c.url, "", doc)
	if err != nil {
		return nil, fmt.Errorf("wsfecred: consultarMontoObligadoRecepcion: %w", err)
	}

	var out struct {
		Body struct {
			Resp struct {
				Obligado   string `xml:"obligado"`
				MontoDesde string `xml:"montoDesde"`
				Errores    []struct {
					Codigo      int    `xml:"codigo"`
					Descripcion string `xml:"descripcion"`
				} `xml:"arrayErrores>codigoDescripcion"`
			} `xml:"consultarMontoObligadoRecepcionResponse"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(respXML, &out); err != nil {
		return nil, fmt.Errorf("wsfecred: respuesta ilegible: %w", err)
	}
	r := out.Body.Resp
	if len(r.Errores) > 0 {
		msgs := make([]string, 0, len(r.Errores))
		for _, e := range r.Errores {
			msgs = append(msgs, fmt.Sprintf("%d: %s", e.Codigo, e.Descripcion))
		}
		return nil, fmt.Errorf("wsfecred: %s", strings.Join(msgs, "; "))
	}

	res := &MontoObligado{
		Obligado:    r.Obligado == "S",
		XMLRequest:  string(reqXML),
		XMLResponse: string(respXML),
	}
	if r.MontoDesde != "" {
		res.MontoDesde, err = decimal.NewFromString(strings.TrimSpace(r.MontoDesde))
		if err != nil {
			return nil, fmt.Errorf("wsfecred: montoDesde %q: %w", r.MontoDesde, err)
		}
	}
	return res, nil
}
