package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Partner receptor de los comprobantes.
type Partner struct {
	ID                     string
	Name                   string
	VAT                    string // CUIT, CUIL o DNI
	IdentificationAfipCode string // 80 CUIT, 96 DNI, ... vacío = no identificado
	MiPyMERequired         bool
	MiPyMEFromAmount       decimal.Decimal
	UpdatedAt              time.Time
}
