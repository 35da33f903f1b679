package afip

import (
	"fmt"
	"strconv"
	"strings"
)

// DocumentNumberParts descompone el número compuesto de un comprobante.
type DocumentNumberParts struct {
	PointOfSale   int
	InvoiceNumber int64
}

// SplitDocumentNumber separa "00002-00000123" en punto de venta y número.
// Los comprobantes de exportación (19, 20, 21) y los de liquidación usan el
// mismo formato; docType se recibe para mensajes de error.
func SplitDocumentNumber(number string, docType int) (DocumentNumberParts, error) {
	parts := strings.Split(strings.TrimSpace(number), "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return DocumentNumberParts{}, fmt.Errorf("afip: número de comprobante %q (tipo %d) inválido, se espera PPPPP-NNNNNNNN", number, docType)
	}
	pos, err := strconv.Atoi(parts[0])
	if err != nil || pos <= 0 {
		return DocumentNumberParts{}, fmt.Errorf("afip: punto de venta inválido en %q", number)
	}
	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || n <= 0 {
		return DocumentNumberParts{}, fmt.Errorf("afip: número inválido en %q", number)
	}
	return DocumentNumberParts{PointOfSale: pos, InvoiceNumber: n}, nil
}

// FormatDocumentNumber es la inversa de SplitDocumentNumber.
func FormatDocumentNumber(pos int, number int64) string {
	return fmt.Sprintf("%05d-%08d", pos, number)
}
