package entity

// Company contribuyente emisor.
type Company struct {
	ID   string
	Name string
	CUIT string
}
