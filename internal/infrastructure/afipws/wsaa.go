package afipws

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"go.mozilla.org/pkcs7"
	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/afipws-caea/internal/domain"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
)

const (
	nsWSAA      = "http://wsaa.view.sua.dvadac.desein.afip.gov"
	wsaaURLHomo = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	wsaaURLProd = "https://wsaa.afip.gov.ar/ws/services/LoginCms"

	// ticketTTL duración pedida en el TRA; AFIP emite tickets de hasta 12 h.
	ticketTTL = 12 * time.Hour
)

// Ticket credenciales de acceso devueltas por LoginCms.
type Ticket struct {
	Token      string    `json:"token"`
	Sign       string    `json:"sign"`
	Expiration time.Time `json:"expiration"`
}

// Valid indica si el ticket sigue vigente con un margen de cortesía.
func (t *Ticket) Valid(now time.Time) bool {
	return t != nil && t.Token != "" && now.Add(5*time.Minute).Before(t.Expiration)
}

// Signer firma el TRA en formato CMS (PKCS#7 SignedData) con el certificado de una CUIT.
type Signer interface {
	CUIT() string
	SignCMS(content []byte) ([]byte, error)
}

// CertSigner firma con el certificado del contribuyente cargado desde .p12/.pfx.
type CertSigner struct {
	cert *x509.Certificate
	key  crypto.PrivateKey
}

// LoadCertSigner carga certificado y llave privada desde un archivo .p12/.pfx.
func LoadCertSigner(path, password string) (*CertSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("decodificar p12: %w", err)
	}
	return &CertSigner{cert: cert, key: priv}, nil
}

// NewCertSigner construye el firmante a partir de certificado y llave ya cargados.
func NewCertSigner(cert *x509.Certificate, key crypto.PrivateKey) *CertSigner {
	return &CertSigner{cert: cert, key: key}
}

// CUIT del titular, tomada del serialNumber del sujeto ("CUIT 20123456786").
func (s *CertSigner) CUIT() string {
	return pkgafip.NormalizeCUIT(s.cert.Subject.SerialNumber)
}

// SignCMS implementa Signer.
func (s *CertSigner) SignCMS(content []byte) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("wsaa: iniciar CMS: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(s.cert, s.key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("wsaa: agregar firmante: %w", err)
	}
	der, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("wsaa: finalizar CMS: %w", err)
	}
	return der, nil
}

// WSAAClient obtiene tickets de acceso (LoginCms). Cada CUIT firma con su
// propio certificado; una CUIT sin certificado no se autentica.
type WSAAClient struct {
	soap    *soapCaller
	url     string
	signers map[string]Signer
	now     func() time.Time
}

// NewWSAAClient construye el cliente para el ambiente dado ("homo" | "prod");
// url vacío usa el endpoint del ambiente.
func NewWSAAClient(env, url string, timeout time.Duration, signers ...Signer) *WSAAClient {
	if url == "" {
		url = wsaaURLHomo
		if env == EnvProd {
			url = wsaaURLProd
		}
	}
	c := &WSAAClient{soap: newSOAPCaller(timeout), url: url, signers: map[string]Signer{}, now: time.Now}
	for _, s := range signers {
		c.signers[s.CUIT()] = s
	}
	return c
}

// CUITs devuelve las CUIT con certificado cargado.
func (c *WSAAClient) CUITs() []string {
	out := make([]string, 0, len(c.signers))
	for cuit := range c.signers {
		out = append(out, cuit)
	}
	sort.Strings(out)
	return out
}

// Login solicita un ticket para el servicio en nombre de la CUIT.
func (c *WSAAClient) Login(ctx context.Context, cuit, service string) (*Ticket, error) {
	signer, ok := c.signers[pkgafip.NormalizeCUIT(cuit)]
	if !ok {
		return nil, fmt.Errorf("wsaa: sin certificado para la CUIT %s: %w", cuit, domain.ErrConfiguration)
	}
	tra, err := c.buildTRA(service)
	if err != nil {
		return nil, err
	}
	cms, err := signer.SignCMS(tra)
	if err != nil {
		return nil, err
	}

	doc, body := newEnvelope()
	op := body.CreateElement("loginCms")
	op.CreateAttr("xmlns", nsWSAA)
	addText(op, "in0", base64.StdEncoding.EncodeToString(cms))

	_, respXML, err := c.soap.call(ctx, c.url, "", doc)
	if err != nil {
		return nil, fmt.Errorf("wsaa: loginCms %s: %w", service, err)
	}

	var out struct {
		Body struct {
			Resp struct {
				Return string `xml:"loginCmsReturn"`
			} `xml:"loginCmsResponse"`
		} `xml:"Body"`
	}
	if err := xml.Unmarshal(respXML, &out); err != nil {
		return nil, fmt.Errorf("wsaa: respuesta ilegible: %w", err)
	}
	return parseLoginTicketResponse([]byte(out.Body.Resp.Return))
}

// buildTRA arma el loginTicketRequest.
func (c *WSAAClient) buildTRA(service string) ([]byte, error) {
	now := c.now()
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("loginTicketRequest")
	root.CreateAttr("version", "1.0")
	header := root.CreateElement("header")
	addText(header, "uniqueId", strconv.FormatInt(now.Unix(), 10))
	addText(header, "generationTime", now.Add(-10*time.Minute).Format(time.RFC3339))
	addText(header, "expirationTime", now.Add(ticketTTL).Format(time.RFC3339))
	addText(root, "service", service)
	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("wsaa: serializar TRA: %w", err)
	}
	return b, nil
}

func parseLoginTicketResponse(b []byte) (*Ticket, error) {
	var ltr struct {
		Header struct {
			ExpirationTime string `xml:"expirationTime"`
		} `xml:"header"`
		Credentials struct {
			Token string `xml:"token"`
			Sign  string `xml:"sign"`
		} `xml:"credentials"`
	}
	if err := xml.Unmarshal(b, &ltr); err != nil {
		return nil, fmt.Errorf("wsaa: loginTicketResponse ilegible: %w", err)
	}
	if ltr.Credentials.Token == "" || ltr.Credentials.Sign == "" {
		return nil, fmt.Errorf("wsaa: ticket sin token/sign")
	}
	exp, err := time.Parse(time.RFC3339, ltr.Header.ExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("wsaa: expirationTime %q: %w", ltr.Header.ExpirationTime, err)
	}
	return &Ticket{Token: ltr.Credentials.Token, Sign: ltr.Credentials.Sign, Expiration: exp}, nil
}
