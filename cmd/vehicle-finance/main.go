package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/vehicle-finance/internal/advisor"
	"github.com/iwvelando/vehicle-finance/internal/config"
	"github.com/iwvelando/vehicle-finance/internal/garage"
	"github.com/iwvelando/vehicle-finance/internal/store"
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// skipSetup marks commands that run without loading the configuration.
const skipSetup = "skipSetup"

// needsPersistentStore marks commands whose effect must outlive the process.
const needsPersistentStore = "needsPersistentStore"

// app carries what every subcommand needs once setup has run.
type app struct {
	configPath     string
	logLevel       string
	outputOverride string

	conf         *config.Configuration
	outputFormat string
	logger       *zap.Logger
	store        store.Store
	garage       *garage.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "vehicle-finance",
		Short: "Compare, commit to and track vehicle financing and leasing plans",
		Long: `vehicle-finance prices every vehicle in your catalog as a loan and as a lease,
estimates what you can comfortably afford, and tracks the plans you commit to:
what is due when, what you have paid, and whether you are keeping up.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.outputOverride, "output-format", "", "type of output override: pretty, csv")

	root.AddCommand(
		a.plansCmd(),
		a.affordCmd(),
		a.commitCmd(),
		a.payCmd(),
		a.scheduleCmd(),
		a.statusCmd(),
		a.adviceCmd(),
		a.serveCmd(),
		a.validateCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipSetup] != "" {
		return nil
	}

	conf, err := config.LoadConfiguration(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", a.configPath, err)
	}
	a.conf = conf

	a.outputFormat = conf.Output.Format
	if a.outputOverride != "" {
		a.outputFormat = a.outputOverride
	}
	if err := validation.ValidateOutputFormat(a.outputFormat); err != nil {
		return err
	}

	if cmd.Annotations[needsPersistentStore] != "" && conf.Store.Backend == constants.StoreBackendMemory {
		return fmt.Errorf("%s tracks committed plans across runs and needs a persistent store; set store.backend to %s in %s",
			cmd.Name(), constants.StoreBackendRedis, a.configPath)
	}

	a.logger, err = initializeLogger(conf.Logging, a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	for _, warning := range conf.ValidateConfiguration() {
		a.logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.setup"),
		)
	}

	a.store, err = conf.OpenStore(cmd.Context(), a.logger)
	if err != nil {
		return err
	}
	a.logger.Debug("opened store",
		zap.String("op", "main.setup"),
		zap.String("backend", conf.Store.Backend),
	)

	a.garage = garage.New(a.store, conf.Vehicles, a.logger,
		garage.WithAdvisor(advisor.New(conf.AdvisorOptions(), a.logger)),
	)
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store",
				zap.String("op", "main.teardown"),
				zap.Error(err),
			)
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vehicle-finance %s\n", version)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
