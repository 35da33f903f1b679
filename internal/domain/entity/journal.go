package entity

// Journal diario de ventas: punto de venta AFIP y web service utilizado.
type Journal struct {
	ID            string
	CompanyID     string
	Name          string
	POSNumber     int
	POSSystem     string // ver afip.POSSystem*
	AfipWS        string // wsfe | wsmtxca | wsfex | "" (no electrónico)
	CAEAJournalID string // Diario gemelo en modo CAEA
}
