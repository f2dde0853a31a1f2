package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/BeAltea/altea-pay/pkg/config"
	"github.com/BeAltea/altea-pay/pkg/plan"
	"github.com/BeAltea/altea-pay/pkg/service"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "altea-import",
	Short:         "Import overdue customer debts into Altea Pay",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var runCmd = &cobra.Command{
	Use:   "run <plan_file>",
	Short: "Import the rows of a plan into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		src, err := p.Open()
		if err != nil {
			return err
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := service.NewProcessor(cfg, logger).Import(ctx, p.Company, src, dryRun)
		if summary != nil {
			if perr := summary.Print(os.Stdout); perr != nil {
				logger.Warn("failed to print summary", "err", perr)
			}
		}
		return err
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <plan_file>",
	Short: "Parse and normalize a plan's rows without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}
		src, err := p.Open()
		if err != nil {
			return err
		}

		entries, summary, err := service.NewProcessor(cfg, logger).Preview(cmd.Context(), src)
		if err != nil {
			return err
		}

		fmt.Printf("Plan preview for %s\n", args[0])
		p.Print(os.Stdout)
		dump, _ := cmd.Flags().GetBool("dump")
		return printPreview(os.Stdout, entries, summary, dump)
	},
}

// setup loads the environment file and configuration and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if lenient, _ := flags.GetBool("lenient"); lenient {
		if err := flags.Set("amount-mode", "lenient"); err != nil {
			return nil, nil, err
		}
	} else if strict, _ := flags.GetBool("strict"); strict {
		if err := flags.Set("amount-mode", "strict"); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.Build(cfgFile, flags)
	if err != nil {
		return nil, nil, err
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, &config.ConfigurationError{Problems: []string{fmt.Sprintf("log level: %v", err)}}
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "altea-import",
		Level:           level,
	})
	return cfg, logger, nil
}

func addPolicyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("amount-mode", "strict", "What to do with unparsable fields: strict (skip row) or lenient (use zero)")
	f.Bool("strict", false, "Shorthand for --amount-mode=strict")
	f.Bool("lenient", false, "Shorthand for --amount-mode=lenient")
	f.String("open-status", "overdue", "Status of debts without a cancellation date (overdue or pending)")
	f.Bool("validate-documents", false, "Skip rows whose CPF/CNPJ check digits are wrong")
	f.Int("max-errors", 10, "Number of error messages kept in the summary")
	cmd.MarkFlagsMutuallyExclusive("strict", "lenient")
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	addPolicyFlags(runCmd)
	runCmd.Flags().Bool("dry-run", false, "Write to an in-memory store instead of the remote one")
	runCmd.Flags().Bool("dedupe-customers", true, "Look customers up by document before creating them")
	runCmd.Flags().Bool("dedupe-companies", true, "Look the company up by CNPJ before creating it")
	runCmd.Flags().Bool("company-must-exist", false, "Fail instead of creating a missing company")
	runCmd.Flags().String("driver", "rest", "Store driver (rest or postgres)")
	runCmd.Flags().String("schema", "customers", "Target table layout (customers, or clients for the legacy tables)")
	runCmd.Flags().Duration("timeout", 0, "Timeout of each store request")
	runCmd.Flags().Int("retries", 0, "Retries of a store request after a transport error or 5xx")
	runCmd.Flags().String("metrics-file", "", "Write run metrics in Prometheus text format to this file")

	addPolicyFlags(previewCmd)
	previewCmd.Flags().Bool("dump", false, "Pretty-print every normalized record")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(previewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
