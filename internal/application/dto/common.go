package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Fields detalle por campo (VALIDATION) o datos extra del error AFIP.
	Fields map[string]string `json:"fields,omitempty"`
	// Invoices comprobantes ya confirmados cuando un lote se detiene a mitad de camino.
	Invoices []AfipStatusResponse `json:"invoices,omitempty"`
}
