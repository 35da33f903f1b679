package afip

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormatAmount representa un importe con dos decimales ("%.2f").
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatDate formatea según el web service: WSMTXCA recibe la fecha ISO,
// el resto el formato compacto AAAAMMDD.
func FormatDate(ws string, t time.Time) string {
	if ws == WSMTXCA {
		return t.Format(DateISO)
	}
	return t.Format(DateCompact)
}

// ParseCompactDate interpreta una fecha AAAAMMDD. Cadena vacía devuelve nil.
func ParseCompactDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateCompact, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
