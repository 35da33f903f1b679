package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/afipws-caea/internal/domain/repository"
	"github.com/jhoicas/afipws-caea/internal/infrastructure/afipws"
)

// Claves de parámetros globales (tabla config_parameters).
const (
	ParamCAEAState       = "afip.ws.caea.state"
	ParamFCETransmission = "l10n_ar_afipws_fe.fce_transmission"

	caeaStateActive = "active"
)

// Repos repositorios atados a una misma unidad de trabajo (pool o tx).
type Repos struct {
	Invoices  repository.InvoiceRepository
	Journals  repository.JournalRepository
	CAEAs     repository.CAEARepository
	Companies repository.CompanyRepository
	Partners  repository.PartnerRepository
}

// BillingTxRunner ejecuta funciones dentro de transacciones con los repos de facturación.
type BillingTxRunner interface {
	// RunBilling ejecuta fn en una transacción que confirma al terminar sin error.
	RunBilling(ctx context.Context, fn func(repos Repos) error) error
	// RunIsolated abre una transacción propia, independiente de cualquier otra en
	// curso, y la confirma apenas fn termina. Un rollback posterior del caller no la afecta.
	RunIsolated(ctx context.Context, fn func(repos Repos) error) error
}

// SessionFactory abre una sesión autenticada contra el web service del diario.
type SessionFactory interface {
	Connect(ctx context.Context, cuit, service string) (afipws.Session, error)
}

// CAEAConfig reemplaza los parámetros globales leídos en cada llamada.
type CAEAConfig struct {
	CAEAEnabled     bool
	FCETransmission string // valor del opcional 27; vacío = no se informa
}

// LoadCAEAConfig lee la configuración CAEA del almacén de parámetros.
func LoadCAEAConfig(ctx context.Context, params repository.ConfigParameterRepository) (CAEAConfig, error) {
	state, err := params.GetParam(ctx, ParamCAEAState, "inactive")
	if err != nil {
		return CAEAConfig{}, fmt.Errorf("leer %s: %w", ParamCAEAState, err)
	}
	transmission, err := params.GetParam(ctx, ParamFCETransmission, "")
	if err != nil {
		return CAEAConfig{}, fmt.Errorf("leer %s: %w", ParamFCETransmission, err)
	}
	return CAEAConfig{CAEAEnabled: state == caeaStateActive, FCETransmission: transmission}, nil
}
