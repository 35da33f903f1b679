package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhoicas/afipws-caea/internal/bootstrap"
	"github.com/jhoicas/afipws-caea/internal/infrastructure/queue"
)

func newRequestCmd(rt *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request INVOICE_ID...",
		Short: "Sella comprobantes validados con el CAEA activo de la empresa",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, err := requireCompany(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return rt.withContainer(ctx, func(c *bootstrap.Container) error {
				invoices, err := c.Post.RequestCAEA(ctx, companyID, args)
				if err != nil {
					return err
				}
				return writeBatch(cmd.OutOrStdout(), invoices)
			})
		},
	}
	cmd.Flags().String("company", "", "ID de la empresa")
	return cmd
}

func newReportCmd(rt *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [INVOICE_ID...]",
		Short: "Informa a AFIP comprobantes CAEA (sin ids: todos los pendientes)",
		Example: `  caea report --company 1111... 2222... 3333...
  caea report --company 1111...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			companyID, err := requireCompany(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return rt.withContainer(ctx, func(c *bootstrap.Container) error {
				if len(args) == 0 {
					invoices, err := c.Submitter.ReportPending(ctx, companyID)
					if werr := writeBatch(cmd.OutOrStdout(), invoices); werr != nil && err == nil {
						err = werr
					}
					return err
				}
				invoices, err := c.Submitter.Submit(ctx, companyID, args)
				if werr := writeBatch(cmd.OutOrStdout(), invoices); werr != nil && err == nil {
					err = werr
				}
				return err
			})
		},
	}
	cmd.Flags().String("company", "", "ID de la empresa")
	return cmd
}

func newEnqueueCmd(rt *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Encola el informe de pendientes para que lo procese el worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			companyID, err := requireCompany(cmd)
			if err != nil {
				return err
			}
			client := queue.NewClient(queue.RedisOpt(rt.cfg.Redis), rt.log)
			defer client.Close()
			info, err := client.EnqueueCAEAReport(cmd.Context(), companyID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tarea %s encolada en %s\n", info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().String("company", "", "ID de la empresa")
	return cmd
}

func newWorkerCmd(rt *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Procesa los informes CAEA encolados",
		RunE: func(cmd *cobra.Command, _ []string) error {
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			ctx, cancel := signalContext()
			defer cancel()
			return rt.withContainer(ctx, func(c *bootstrap.Container) error {
				srv := queue.NewServer(queue.RedisOpt(rt.cfg.Redis), concurrency, rt.log)
				if err := srv.Start(queue.NewServeMux(queue.NewProcessor(c.Submitter, rt.log))); err != nil {
					return fmt.Errorf("iniciar worker: %w", err)
				}
				rt.log.Info().Int("concurrency", concurrency).Msg("worker CAEA iniciado")
				<-ctx.Done()
				rt.log.Info().Msg("señal de apagado recibida, deteniendo worker...")
				srv.Shutdown()
				return nil
			})
		},
	}
	cmd.Flags().Int("concurrency", 1, "tareas en paralelo")
	return cmd
}

func newLoginCmd(rt *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verifica certificado y conectividad pidiendo un ticket WSAA",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _ := cmd.Flags().GetString("service")
			cuit, _ := cmd.Flags().GetString("cuit")
			ctx, cancel := signalContext()
			defer cancel()
			return rt.withContainer(ctx, func(c *bootstrap.Container) error {
				services := bootstrap.Services
				if service != "" {
					services = []string{service}
				}
				cuits := c.WSAA.CUITs()
				if cuit != "" {
					cuits = []string{cuit}
				}
				if len(cuits) == 0 {
					return fmt.Errorf("no hay certificado AFIP cargado (AFIP_CERT_PATH)")
				}
				for _, cu := range cuits {
					for _, s := range services {
						ticket, err := c.WSAA.Login(ctx, cu, s)
						if err != nil {
							return fmt.Errorf("login %s %s: %w", cu, s, err)
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s: ticket vigente hasta %s\n", cu, s, ticket.Expiration.Format(time.RFC3339))
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().String("service", "", "web service (por defecto wsfe y wsfecred)")
	cmd.Flags().String("cuit", "", "CUIT a autenticar (por defecto la del certificado)")
	return cmd
}
