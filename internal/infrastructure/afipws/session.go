// Package afipws implementa los clientes SOAP de los web services de AFIP
// (WSAA, WSFEv1, WSFECRED) y la fábrica de sesiones autenticadas.
package afipws

import (
	"context"
	"fmt"

	"github.com/jhoicas/afipws-caea/internal/domain/afip"
)

// Response atributos legibles de la sesión luego de una llamada.
type Response struct {
	CAE         string
	CAEA        string
	Vencimiento string // AAAAMMDD, vacío si AFIP no lo informa
	Resultado   string // A aprobado, R rechazado, P parcial
	EmisionTipo string // CAE | CAEA
	Obs         string
	ErrMsg      string
	XMLRequest  string
	XMLResponse string
	Excepcion   string // excepción ya interpretada por la sesión; vacío si no hubo
}

// Session sesión autenticada contra un web service de facturación.
// No es segura para uso concurrente: una sesión por flujo lógico.
type Session interface {
	afip.Stager
	// RegisterCAEAInformative informa el comprobante preparado (FECAEARegInformativo).
	RegisterCAEAInformative(ctx context.Context) (string, error)
	// RequestCAE solicita CAE para el comprobante preparado (FECAESolicitar).
	RequestCAE(ctx context.Context) (string, error)
	Response() Response
}

// SOAPFault falla de protocolo devuelta por el web service.
type SOAPFault struct {
	Code   string
	String string
}

func (f *SOAPFault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// unsupportedSession se usa para servicios que no implementan las operaciones CAEA/CAE
// (wsmtxca, wsfex). Acepta el payload y falla en la llamada con Excepcion cargada,
// como lo haría un helper sin el método.
type unsupportedSession struct {
	service string
	resp    Response
}

func (s *unsupportedSession) CreateInvoice(afip.Comprobante) {}
func (s *unsupportedSession) AddOptional(afip.Opcional)      {}
func (s *unsupportedSession) AddTribute(afip.Tributo)        {}
func (s *unsupportedSession) AddAssociated(afip.CbteAsoc)    {}

func (s *unsupportedSession) RegisterCAEAInformative(context.Context) (string, error) {
	return "", s.fail("CAEARegInformativo")
}

func (s *unsupportedSession) RequestCAE(context.Context) (string, error) {
	return "", s.fail("CAESolicitar")
}

func (s *unsupportedSession) Response() Response { return s.resp }

func (s *unsupportedSession) fail(op string) error {
	s.resp.Excepcion = fmt.Sprintf("el web service %s no implementa %s", s.service, op)
	return fmt.Errorf("afipws: %s", s.resp.Excepcion)
}
