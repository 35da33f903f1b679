// Package bootstrap arma las dependencias compartidas por la API y la CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/afipws-caea/internal/application/billing"
	"github.com/jhoicas/afipws-caea/internal/infrastructure/afipws"
	"github.com/jhoicas/afipws-caea/internal/infrastructure/postgres"
	pkgafip "github.com/jhoicas/afipws-caea/pkg/afip"
	"github.com/jhoicas/afipws-caea/pkg/config"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

// Container casos de uso listos para usar y los recursos que hay que cerrar.
type Container struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client // nil si Redis no responde

	WSAA      *afipws.WSAAClient
	Sessions  *afipws.ConnectionFactory
	Post      *billing.PostInvoicesUseCase
	Submitter *billing.CAEASubmitter
	MiPyME    *billing.MiPyMEUseCase
}

// New conecta PostgreSQL (obligatorio) y Redis (opcional: sin Redis los tickets WSAA
// quedan en memoria y no hay cola).
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c := &Container{Pool: pool}

	var cache afipws.TicketCache = afipws.NewMemoryTicketCache()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis no disponible: cache de tickets en memoria")
		_ = rdb.Close()
	} else {
		c.Redis = rdb
		cache = afipws.NewRedisTicketCache(rdb)
	}

	var signers []afipws.Signer
	if cfg.AFIP.CertPath != "" {
		s, err := afipws.LoadCertSigner(cfg.AFIP.CertPath, cfg.AFIP.CertPassword)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("certificado AFIP: %w", err)
		}
		if s.CUIT() == "" {
			c.Close()
			return nil, errors.New("certificado AFIP: el sujeto no informa la CUIT (serialNumber)")
		}
		log.Info().Str("cuit", s.CUIT()).Msg("certificado AFIP cargado")
		signers = append(signers, s)
	} else {
		log.Warn().Msg("AFIP_CERT_PATH vacío: las llamadas a AFIP van a fallar")
	}

	timeout := time.Duration(cfg.AFIP.TimeoutSec) * time.Second
	wsaa := afipws.NewWSAAClient(cfg.AFIP.Env, "", timeout, signers...)
	c.WSAA = wsaa
	c.Sessions = afipws.NewConnectionFactory(afipws.FactoryConfig{Env: cfg.AFIP.Env, Timeout: timeout}, wsaa, cache, log)
	wsfecred := afipws.NewWSFECredClient(cfg.AFIP.Env, "", wsaa, cache, timeout)

	txRunner := postgres.NewTxRunner(pool)
	params := postgres.NewConfigParameterRepository(pool)
	repos := postgres.NewRepos(pool)

	cae := billing.NewCAEAuthorizer(c.Sessions, txRunner, log)
	dispatcher := billing.NewCAEADispatcher(cae, log)
	c.Post = billing.NewPostInvoicesUseCase(txRunner, params, dispatcher, log)
	c.Submitter = billing.NewCAEASubmitter(repos, params, txRunner, c.Sessions, log)
	c.MiPyME = billing.NewMiPyMEUseCase(repos.Partners, repos.Companies, wsfecred, log)

	log.Info().Str("afip_env", cfg.AFIP.Env).Bool("redis", c.Redis != nil).Msg("dependencias inicializadas")
	return c, nil
}

// Close libera conexiones.
func (c *Container) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	c.Pool.Close()
}

// Services web services AFIP que la aplicación autentica contra WSAA.
var Services = []string{pkgafip.WSFE, pkgafip.WSFECRED}
