package afipws

import (
	"context"
	"fmt"
	"time"

	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

const (
	EnvHomo = "homo"
	EnvProd = "prod"
)

// Authenticator obtiene tickets de acceso WSAA en nombre de una CUIT.
type Authenticator interface {
	Login(ctx context.Context, cuit, service string) (*Ticket, error)
}

// FactoryConfig parámetros de la fábrica de sesiones.
type FactoryConfig struct {
	Env     string
	Timeout time.Duration
	// WSFEURL reemplaza el endpoint WSFEv1 del ambiente (tests, proxies).
	WSFEURL string
}

// ConnectionFactory abre sesiones autenticadas por CUIT y web service.
type ConnectionFactory struct {
	cfg   FactoryConfig
	auth  Authenticator
	cache TicketCache
	soap  *soapCaller
	log   *logger.Logger
	now   func() time.Time
}

func NewConnectionFactory(cfg FactoryConfig, auth Authenticator, cache TicketCache, log *logger.Logger) *ConnectionFactory {
	if cache == nil {
		cache = NewMemoryTicketCache()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ConnectionFactory{
		cfg:   cfg,
		auth:  auth,
		cache: cache,
		soap:  newSOAPCaller(cfg.Timeout),
		log:   log.WithComponent("afipws"),
		now:   time.Now,
	}
}

// Connect devuelve una sesión viva para el web service indicado.
func (f *ConnectionFactory) Connect(ctx context.Context, cuit, service string) (Session, error) {
	switch service {
	case pkgafip.WSMTXCA, pkgafip.WSFEX:
		return &unsupportedSession{service: service}, nil
	case pkgafip.WSFE:
	default:
		return nil, fmt.Errorf("afipws: web service desconocido %q", service)
	}

	t, err := f.ticket(ctx, cuit, service)
	if err != nil {
		return nil, err
	}
	url := f.cfg.WSFEURL
	if url == "" {
		url = wsfeURLHomo
		if f.cfg.Env == EnvProd {
			url = wsfeURLProd
		}
	}
	return newWSFEClient(f.soap, url, Credentials{Token: t.Token, Sign: t.Sign, CUIT: cuit}), nil
}

// ticket reutiliza el ticket cacheado o hace LoginCms.
func (f *ConnectionFactory) ticket(ctx context.Context, cuit, service string) (*Ticket, error) {
	t, err := f.cache.Get(ctx, cuit, service)
	if err != nil {
		f.log.Warn().Err(err).Str("cuit", cuit).Msg("cache de tickets no disponible")
	}
	if t.Valid(f.now()) {
		return t, nil
	}
	t, err = f.auth.Login(ctx, cuit, service)
	if err != nil {
		return nil, fmt.Errorf("afipws: login %s: %w", service, err)
	}
	if err := f.cache.Put(ctx, cuit, service, t); err != nil {
		f.log.Warn().Err(err).Str("cuit", cuit).Msg("no se pudo cachear el ticket WSAA")
	}
	f.log.Info().Str("cuit", cuit).Str("service", service).Time("expira", t.Expiration).Msg("ticket WSAA obtenido")
	return t, nil
}
