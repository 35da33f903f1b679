package afipws

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
)

const soapNS = "http://schemas.xmlsoap.org/soap/envelope/"

// soapCaller transporte SOAP 1.1 compartido por los clientes.
type soapCaller struct {
	httpClient *http.Client
}

func newSOAPCaller(timeout time.Duration) *soapCaller {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &soapCaller{httpClient: &http.Client{Timeout: timeout}}
}

// newEnvelope crea el documento SOAP y devuelve el elemento Body para completar.
func newEnvelope() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("soap:Envelope")
	env.CreateAttr("xmlns:soap", soapNS)
	env.CreateElement("soap:Header")
	return doc, env.CreateElement("soap:Body")
}

// addText agrega <tag>text</tag> a parent.
func addText(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text)
	return el
}

type faultEnvelope struct {
	Body struct {
		Fault *struct {
			FaultCode   string `xml:"faultcode"`
			FaultString string `xml:"faultstring"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

// call envía el envelope y devuelve request y response crudos. Un SOAP Fault se
// devuelve como *SOAPFault junto con los XML para poder registrarlos.
func (c *soapCaller) call(ctx context.Context, url, action string, doc *etree.Document) (reqXML, respXML []byte, err error) {
	doc.Indent(2)
	reqXML, err = doc.WriteToBytes()
	if err != nil {
		return nil, nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqXML))
	if err != nil {
		return reqXML, nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+action+`"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return reqXML, nil, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return reqXML, nil, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	respXML, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return reqXML, nil, fmt.Errorf("soap: leer respuesta: %w", err)
	}

	var fe faultEnvelope
	if xml.Unmarshal(respXML, &fe) == nil && fe.Body.Fault != nil {
		return reqXML, respXML, &SOAPFault{Code: fe.Body.Fault.FaultCode, String: fe.Body.Fault.FaultString}
	}
	if resp.StatusCode != http.StatusOK {
		return reqXML, respXML, fmt.Errorf("soap: HTTP %d", resp.StatusCode)
	}
	return reqXML, respXML, nil
}
