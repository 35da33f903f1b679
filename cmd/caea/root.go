package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/afipws-caea/internal/application/dto"
	"github.com/jhoicas/afipws-caea/internal/bootstrap"
	"github.com/jhoicas/afipws-caea/internal/domain/entity"
	"github.com/jhoicas/afipws-caea/pkg/config"
	"github.com/jhoicas/afipws-caea/pkg/logger"
)

var version = "dev"

// cliEnv estado compartido por los subcomandos, cargado en PersistentPreRunE.
type cliEnv struct {
	cfg *config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	rt := &cliEnv{}
	root := &cobra.Command{
		Use:   "caea",
		Short: "Operación de comprobantes CAEA ante AFIP",
		Long: `caea sella comprobantes con el CAEA vigente, los informa a AFIP
(FECAEARegInformativo) y ejecuta el worker que procesa los informes encolados.

Variables de entorno: DATABASE_URL o DB_*, AFIP_ENV, AFIP_CERT_PATH,
AFIP_CERT_PASSWORD, AFIP_TIMEOUT_SECONDS, REDIS_*, LOG_LEVEL.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
				cfg.App.LogLevel = lvl
			}
			rt.cfg = cfg
			rt.log = logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "", "nivel de log (trace, debug, info, warn, error)")

	root.AddCommand(
		newRequestCmd(rt),
		newReportCmd(rt),
		newEnqueueCmd(rt),
		newWorkerCmd(rt),
		newLoginCmd(rt),
	)
	return root
}

// signalContext se cancela con SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withContainer arma las dependencias, ejecuta fn y las libera.
func (rt *cliEnv) withContainer(ctx context.Context, fn func(*bootstrap.Container) error) error {
	c, err := bootstrap.New(ctx, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func writeBatch(w io.Writer, invoices []*entity.Invoice) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dto.ToAfipBatch(invoices))
}

func requireCompany(cmd *cobra.Command) (string, error) {
	companyID, _ := cmd.Flags().GetString("company")
	if companyID == "" {
		return "", fmt.Errorf("--company es obligatorio")
	}
	return companyID, nil
}
