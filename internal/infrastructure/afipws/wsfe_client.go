package afipws

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/jhoicas/afipws-caea/internal/domain/afip"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
)

const (
	nsFEV1      = "http://ar.gov.afip.dif.FEV1/"
	wsfeURLHomo = "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"
	wsfeURLProd = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
	wsfeOpCAEA  = "FECAEARegInformativo"
	wsfeOpCAE   = "FECAESolicitar"
)

// Credentials ticket de acceso WSAA más la CUIT representada.
type Credentials struct {
	Token string
	Sign  string
	CUIT  string
}

// WSFEClient sesión WSFEv1. Acumula el comprobante preparado y lo envía en
// FECAEARegInformativo o FECAESolicitar.
type WSFEClient struct {
	soap  *soapCaller
	url   string
	creds Credentials

	cbte      *afip.Comprobante
	opts      []afip.Opcional
	tributos  []afip.Tributo
	asociados []afip.CbteAsoc

	resp Response
}

var _ Session = (*WSFEClient)(nil)

func newWSFEClient(soap *soapCaller, url string, creds Credentials) *WSFEClient {
	return &WSFEClient{soap: soap, url: url, creds: creds}
}

// CreateInvoice reinicia la sesión con un nuevo comprobante (CrearFactura).
func (c *WSFEClient) CreateInvoice(cbte afip.Comprobante) {
	c.cbte = &cbte
	c.opts, c.tributos, c.asociados = nil, nil, nil
}

func (c *WSFEClient) AddOptional(o afip.Opcional)   { c.opts = append(c.opts, o) }
func (c *WSFEClient) AddTribute(t afip.Tributo)     { c.tributos = append(c.tributos, t) }
func (c *WSFEClient) AddAssociated(a afip.CbteAsoc) { c.asociados = append(c.asociados, a) }

// Response devuelve el estado de la última llamada.
func (c *WSFEClient) Response() Response { return c.resp }

// RegisterCAEAInformative informa a AFIP un comprobante emitido con CAEA.
func (c *WSFEClient) RegisterCAEAInformative(ctx context.Context) (string, error) {
	if c.cbte == nil {
		return "", c.exception("no se llamó a CrearFactura antes de CAEARegInformativo")
	}
	doc, body := newEnvelope()
	op := body.CreateElement(wsfeOpCAEA)
	op.CreateAttr("xmlns", nsFEV1)
	c.writeAuth(op)
	req := op.CreateElement("FeCAEARegInfReq")
	c.writeCab(req)
	det := req.CreateElement("FeDetReq").CreateElement("FECAEADetRequest")
	c.writeDet(det)
	addText(det, "CAEA", c.cbte.CAEA)
	addText(det, "CbteFchHsGen", c.cbte.CbteFchHsGen)

	var out struct {
		Body struct {
			Resp struct {
				Result wsfeResult `xml:"FECAEARegInformativoResult"`
			} `xml:"FECAEARegInformativoResponse"`
		} `xml:"Body"`
	}
	if err := c.do(ctx, wsfeOpCAEA, doc, &out); err != nil {
		return "", err
	}
	r := out.Body.Resp.Result
	c.resp.EmisionTipo = pkgafip.AuthModeCAEA
	c.resp.Resultado = r.FeCabResp.Resultado
	if len(r.FeDetResp.CAEA) > 0 {
		det := r.FeDetResp.CAEA[0]
		c.resp.Resultado = det.Resultado
		c.resp.CAEA = det.CAEA
		c.resp.Obs = joinMessages(det.Observaciones)
	}
	c.resp.ErrMsg = joinMessages(r.Errors)
	return c.resp.CAEA, nil
}

// RequestCAE solicita CAE para el comprobante preparado.
func (c *WSFEClient) RequestCAE(ctx context.Context) (string, error) {
	if c.cbte == nil {
		return "", c.exception("no se llamó a CrearFactura antes de CAESolicitar")
	}
	doc, body := newEnvelope()
	op := body.CreateElement(wsfeOpCAE)
	op.CreateAttr("xmlns", nsFEV1)
	c.writeAuth(op)
	req := op.CreateElement("FeCAEReq")
	c.writeCab(req)
	c.writeDet(req.CreateElement("FeDetReq").CreateElement("FECAEDetRequest"))

	var out struct {
		Body struct {
			Resp struct {
				Result wsfeResult `xml:"FECAESolicitarResult"`
			} `xml:"FECAESolicitarResponse"`
		} `xml:"Body"`
	}
	if err := c.do(ctx, wsfeOpCAE, doc, &out); err != nil {
		return "", err
	}
	r := out.Body.Resp.Result
	c.resp.EmisionTipo = pkgafip.AuthModeCAE
	c.resp.Resultado = r.FeCabResp.Resultado
	if len(r.FeDetResp.CAE) > 0 {
		det := r.FeDetResp.CAE[0]
		c.resp.Resultado = det.Resultado
		c.resp.CAE = det.CAE
		c.resp.Vencimiento = det.CAEFchVto
		c.resp.Obs = joinMessages(det.Observaciones)
	}
	c.resp.ErrMsg = joinMessages(r.Errors)
	return c.resp.CAE, nil
}

// do ejecuta la llamada, guarda los XML crudos y decodifica la respuesta.
func (c *WSFEClient) do(ctx context.Context, op string, doc *etree.Document, out any) error {
	c.resp = Response{}
	reqXML, respXML, err := c.soap.call(ctx, c.url, nsFEV1+op, doc)
	c.resp.XMLRequest = string(reqXML)
	c.resp.XMLResponse = string(respXML)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(respXML, out); err != nil {
		c.resp.Excepcion = fmt.Sprintf("respuesta %s ilegible: %v", op, err)
		return fmt.Errorf("afipws: %s", c.resp.Excepcion)
	}
	return nil
}

func (c *WSFEClient) exception(msg string) error {
	c.resp = Response{Excepcion: msg}
	return fmt.Errorf("afipws: %s", msg)
}

func (c *WSFEClient) writeAuth(op *etree.Element) {
	auth := op.CreateElement("Auth")
	addText(auth, "Token", c.creds.Token)
	addText(auth, "Sign", c.creds.Sign)
	addText(auth, "Cuit", c.creds.CUIT)
}

func (c *WSFEClient) writeCab(req *etree.Element) {
	cab := req.CreateElement("FeCabReq")
	addText(cab, "CantReg", "1")
	addText(cab, "PtoVta", strconv.Itoa(c.cbte.PuntoVta))
	addText(cab, "CbteTipo", strconv.Itoa(c.cbte.TipoCbte))
}

// writeDet escribe el detalle en el orden del WSDL de WSFEv1.
func (c *WSFEClient) writeDet(det *etree.Element) {
	f := c.cbte
	addText(det, "Concepto", strconv.Itoa(f.Concepto))
	addText(det, "DocTipo", f.TipoDoc)
	addText(det, "DocNro", f.NroDoc)
	addText(det, "CbteDesde", strconv.FormatInt(f.CbtDesde, 10))
	addText(det, "CbteHasta", strconv.FormatInt(f.CbtHasta, 10))
	addText(det, "CbteFch", f.FechaCbte)
	addText(det, "ImpTotal", f.ImpTotal)
	addText(det, "ImpTotConc", f.ImpTotConc)
	addText(det, "ImpNeto", f.ImpNeto)
	addText(det, "ImpOpEx", f.ImpOpEx)
	addText(det, "ImpTrib", f.ImpTrib)
	addText(det, "ImpIVA", f.ImpIVA)
	if f.FechaServDesde != "" {
		addText(det, "FchServDesde", f.FechaServDesde)
	}
	if f.FechaServHasta != "" {
		addText(det, "FchServHasta", f.FechaServHasta)
	}
	if f.FechaVencPago != "" {
		addText(det, "FchVtoPago", f.FechaVencPago)
	}
	addText(det, "MonId", f.MonedaID)
	addText(det, "MonCotiz", f.MonedaCtz)

	if len(c.asociados) > 0 {
		list := det.CreateElement("CbtesAsoc")
		for _, a := range c.asociados {
			el := list.CreateElement("CbteAsoc")
			addText(el, "Tipo", strconv.Itoa(a.Tipo))
			addText(el, "PtoVta", strconv.Itoa(a.PtoVta))
			addText(el, "Nro", strconv.FormatInt(a.Nro, 10))
			addText(el, "Cuit", a.Cuit)
			if a.Fecha != "" {
				addText(el, "CbteFch", a.Fecha)
			}
		}
	}
	if len(c.tributos) > 0 {
		list := det.CreateElement("Tributos")
		for _, t := range c.tributos {
			el := list.CreateElement("Tributo")
			addText(el, "Id", t.ID)
			addText(el, "Desc", t.Desc)
			addText(el, "BaseImp", t.BaseImp)
			addText(el, "Alic", t.Alic)
			addText(el, "Importe", t.Importe)
		}
	}
	if len(c.opts) > 0 {
		list := det.CreateElement("Opcionales")
		for _, o := range c.opts {
			el := list.CreateElement("Opcional")
			addText(el, "Id", o.ID)
			addText(el, "Valor", o.Valor)
		}
	}
}

// ── Respuestas ────────────────────────────────────────────────────────────────

type wsfeMessage struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type wsfeDet struct {
	Resultado     string        `xml:"Resultado"`
	CAE           string        `xml:"CAE"`
	CAEFchVto     string        `xml:"CAEFchVto"`
	CAEA          string        `xml:"CAEA"`
	Observaciones []wsfeMessage `xml:"Observaciones>Obs"`
}

type wsfeResult struct {
	FeCabResp struct {
		Resultado string `xml:"Resultado"`
	} `xml:"FeCabResp"`
	FeDetResp struct {
		CAE  []wsfeDet `xml:"FECAEDetResponse"`
		CAEA []wsfeDet `xml:"FECAEADetResponse"`
	} `xml:"FeDetResp"`
	Errors []wsfeMessage `xml:"Errors>Err"`
}

func joinMessages(msgs []wsfeMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, fmt.Sprintf("%d: %s", m.Code, m.Msg))
	}
	return strings.Join(parts, "\n")
}
