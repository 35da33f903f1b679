package afip

// Comprobante campos de CrearFactura, en el orden del contrato remoto.
// Las fechas opcionales vacías no se informan.
type Comprobante struct {
	Concepto       int
	TipoDoc        string
	NroDoc         string
	TipoCbte       int
	PuntoVta       int
	CbtDesde       int64
	CbtHasta       int64
	ImpTotal       string
	ImpTotConc     string
	ImpNeto        string
	ImpIVA         string
	ImpTrib        string
	ImpOpEx        string
	FechaCbte      string
	FechaVencPago  string
	FechaServDesde string
	FechaServHasta string
	MonedaID       string
	MonedaCtz      string
	CAEA           string
	CbteFchHsGen   string
}

// Opcional dato adicional (AgregarOpcional).
type Opcional struct {
	ID    string
	Valor string
}

// Tributo impuesto no IVA (AgregarTributo).
type Tributo struct {
	ID      string
	Desc    string
	BaseImp string
	Alic    string
	Importe string
}

// CbteAsoc comprobante asociado (AgregarCmpAsoc). Fecha vacía = no se informa.
type CbteAsoc struct {
	Tipo   int
	PtoVta int
	Nro    int64
	Cuit   string
	Fecha  string
}

// Payload llamada completa a informar; se construye, se usa una vez y se descarta.
type Payload struct {
	Comprobante Comprobante
	Opcionales  []Opcional
	Tributos    []Tributo
	CbtesAsoc   []CbteAsoc
}

// Stager recibe los datos del comprobante antes de la llamada remota.
type Stager interface {
	CreateInvoice(c Comprobante)
	AddOptional(o Opcional)
	AddTribute(t Tributo)
	AddAssociated(a CbteAsoc)
}

// Stage vuelca el payload en la sesión respetando el orden del contrato.
func (p *Payload) Stage(s Stager) {
	s.CreateInvoice(p.Comprobante)
	for _, o := range p.Opcionales {
		s.AddOptional(o)
	}
	for _, t := range p.Tributos {
		s.AddTribute(t)
	}
	for _, a := range p.CbtesAsoc {
		s.AddAssociated(a)
	}
}

// Optional busca un opcional por id.
func (p *Payload) Optional(id string) (Opcional, bool) {
	for _, o := range p.Opcionales {
		if o.ID == id {
			return o, true
		}
	}
	return Opcional{}, false
}
