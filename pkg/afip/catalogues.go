// Package afip contiene catálogos y utilidades alineados a los web services de
// factura electrónica de AFIP (Argentina): WSFEv1, WSMTXCA, WSFEX y WSFECRED.
package afip

// =============================================================================
// Web services
// =============================================================================

const (
	WSFE     = "wsfe"     // Factura electrónica régimen general (WSFEv1)
	WSMTXCA  = "wsmtxca"  // Factura con detalle de ítems (Matrix)
	WSFEX    = "wsfex"    // Factura de exportación
	WSFECRED = "wsfecred" // Factura de crédito electrónica MiPyME (consultas)
	WSAA     = "wsaa"     // Autenticación y autorización
)

// =============================================================================
// Modos de autorización y sistemas de punto de venta
// =============================================================================

const (
	AuthModeCAE  = "CAE"
	AuthModeCAEA = "CAEA"

	POSSystemNormal = "RAW_MAW" // Factura electrónica online (CAE)
	POSSystemCAEA   = "CAEA"
)

// =============================================================================
// Conceptos (FEParamGetTiposConcepto)
// =============================================================================

const (
	ConceptProducts            = 1
	ConceptServices            = 2
	ConceptProductsAndServices = 3
	ConceptOther               = 4
)

// =============================================================================
// Resultados
// =============================================================================

const (
	ResultApproved = "A"
	ResultRejected = "R"
	ResultPartial  = "P"
)

// =============================================================================
// Opcionales (FEParamGetTiposOpcional)
// =============================================================================

const (
	OptionalCBU              = "2101" // CBU del emisor (FCE MiPyME)
	OptionalTransmissionType = "27"   // SCA / ADC
	OptionalCancellation     = "22"   // Anulación de FCE (S/N)
)

// Tipo de documento del receptor cuando no está identificado.
const BuyerDocTypeUnidentified = "99"

// =============================================================================
// Tipos de comprobante
// =============================================================================

var mipymeDocumentTypes = map[int]bool{201: true, 206: true, 211: true}

var fceNoteDocumentTypes = map[int]bool{
	202: true, 203: true, 207: true, 208: true, 212: true, 213: true,
}

// IsMiPyMEInvoice indica si el tipo de comprobante es una Factura de Crédito
// Electrónica MiPyME (A, B o C).
func IsMiPyMEInvoice(docType int) bool { return mipymeDocumentTypes[docType] }

// IsFCENote indica si el tipo es una nota de débito/crédito de FCE MiPyME.
func IsFCENote(docType int) bool { return fceNoteDocumentTypes[docType] }

// =============================================================================
// Formatos de fecha
// =============================================================================

const (
	DateCompact  = "20060102"
	DateISO      = "2006-01-02"
	TimestampGen = "20060102150405"
)
