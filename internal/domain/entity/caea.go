package entity

import "time"

// Estados del CAEA.
const (
	CAEAStateDraft    = "draft"
	CAEAStateActive   = "active"
	CAEAStateReported = "reported"
)

// CAEA código de autorización anticipado, válido para una quincena.
// Se obtiene y activa fuera de este servicio; aquí solo se consulta.
type CAEA struct {
	ID          string
	CompanyID   string
	Code        string
	Period      string // AAAAMM
	Order       int    // 1 = primera quincena, 2 = segunda
	DateFrom    time.Time
	DateTo      time.Time
	ProcessDate time.Time
	State       string
}

// IsActiveOn indica si el CAEA está activo y vigente en la fecha dada.
func (c *CAEA) IsActiveOn(day time.Time) bool {
	if c.State != CAEAStateActive {
		return false
	}
	d := day.Truncate(24 * time.Hour)
	return !d.Before(c.DateFrom.Truncate(24*time.Hour)) && !d.After(c.DateTo.Truncate(24*time.Hour))
}
