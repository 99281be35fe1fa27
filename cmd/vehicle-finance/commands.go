package main

import (
	"fmt"
	"io"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/internal/server"
	"github.com/iwvelando/vehicle-finance/pkg/constants"
	"github.com/iwvelando/vehicle-finance/pkg/datetime"
	"github.com/iwvelando/vehicle-finance/pkg/format"
	"github.com/iwvelando/vehicle-finance/pkg/loans"
	"github.com/iwvelando/vehicle-finance/pkg/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultUser = "default"

func (a *app) plansCmd() *cobra.Command {
	var breakdown string
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Price every vehicle in the catalog as a loan and as a lease",
		RunE: func(cmd *cobra.Command, _ []string) error {
			options, err := a.garage.Plans(a.conf.Profile, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if breakdown != "" {
				return printBreakdown(out, options, breakdown)
			}
			if a.outputFormat == constants.OutputFormatCSV {
				return output.CsvPlans(out, options)
			}
			output.PrettyPlans(out, options)
			return nil
		},
	}
	cmd.Flags().StringVar(&breakdown, "breakdown", "", "print the month-by-month amortization of this vehicle's loan")
	return cmd
}

func printBreakdown(out io.Writer, options []plan.Option, vehicleID string) error {
	for _, option := range options {
		if option.Vehicle.ID != vehicleID {
			continue
		}
		f, ok := option.Financing.Financing()
		if !ok {
			break
		}
		payments, err := loans.GenerateSchedule(f.LoanAmount, f.AnnualRate, f.TermYears*constants.MonthsPerYear)
		if err != nil {
			return err
		}
		output.PrettyAmortization(out, payments)
		return nil
	}
	return fmt.Errorf("no financing plan for vehicle %s", vehicleID)
}

func (a *app) affordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "afford",
		Short: "Estimate the comfortable price range for the configured profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			priceRange, err := a.garage.Affordability(a.conf.Profile)
			if err != nil {
				return err
			}
			output.PrettyRange(cmd.OutOrStdout(), priceRange)
			return nil
		},
	}
}

func (a *app) commitCmd() *cobra.Command {
	var user, vehicleID, planType string
	cmd := &cobra.Command{
		Use:         "commit",
		Short:       "Commit to a vehicle's loan or lease and start tracking it",
		Annotations: map[string]string{needsPersistentStore: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := plan.ParseType(planType)
			if err != nil {
				return err
			}
			options, err := a.garage.Plans(a.conf.Profile, nil)
			if err != nil {
				return err
			}
			for _, option := range options {
				if option.Vehicle.ID != vehicleID {
					continue
				}
				chosen := option.Financing
				if kind == plan.Leasing {
					chosen = option.Leasing
				}
				result, err := a.garage.Commit(cmd.Context(), user, option.Vehicle, chosen)
				if err != nil {
					return err
				}
				verb := "Committed to"
				if result.AlreadyCommitted {
					verb = "Already committed to"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s: %s per month, loan %s\n",
					verb, kind, vehicleID, format.Currency(result.Loan.MonthlyPayment), result.Loan.ID)
				return nil
			}
			return fmt.Errorf("vehicle %s is not in the catalog or does not meet the seating requirement", vehicleID)
		},
	}
	cmd.Flags().StringVar(&user, "user", defaultUser, "user the plan belongs to")
	cmd.Flags().StringVar(&vehicleID, "vehicle", "", "vehicle id from the catalog")
	cmd.Flags().StringVar(&planType, "type", string(plan.Financing), "plan type: financing or leasing")
	_ = cmd.MarkFlagRequired("vehicle")
	return cmd
}

func (a *app) payCmd() *cobra.Command {
	var user, loanID string
	var amount float64
	cmd := &cobra.Command{
		Use:         "pay",
		Short:       "Record a payment against a committed plan",
		Annotations: map[string]string{needsPersistentStore: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			loan, err := a.garage.Pay(cmd.Context(), user, loanID, amount)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if loan.PlanType == plan.Leasing {
				fmt.Fprintf(out, "Recorded lease payment of %s for %s\n",
					format.Currency(loan.MonthlyPayment), loan.VehicleID)
				return nil
			}
			fmt.Fprintf(out, "Recorded %s, %s left\n", format.Currency(amount), format.Currency(loan.AmountLeft))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", defaultUser, "user the loan belongs to")
	cmd.Flags().StringVar(&loanID, "loan", "", "loan id printed by commit")
	cmd.Flags().Float64Var(&amount, "amount", 0, "payment amount")
	_ = cmd.MarkFlagRequired("loan")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (a *app) scheduleCmd() *cobra.Command {
	var user, from string
	var months int
	cmd := &cobra.Command{
		Use:         "schedule",
		Short:       "List upcoming payments across all committed plans",
		Annotations: map[string]string{needsPersistentStore: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var start time.Time
			if from != "" {
				parsed, err := datetime.ParseDate(from)
				if err != nil {
					return fmt.Errorf("invalid --from %q, expected YYYY-MM-DD: %w", from, err)
				}
				start = parsed
			}
			if months <= 0 {
				months = a.conf.HorizonMonths()
			}
			events, err := a.garage.Schedule(cmd.Context(), user, start, months)
			if err != nil {
				return err
			}
			if a.outputFormat == constants.OutputFormatCSV {
				return output.CsvSchedule(cmd.OutOrStdout(), events)
			}
			output.PrettySchedule(cmd.OutOrStdout(), events)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", defaultUser, "user whose payments to list")
	cmd.Flags().StringVar(&from, "from", "", "first day of the window, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&months, "months", 0, "length of the window in months (default from config)")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:         "status",
		Short:       "Show whether each committed plan is on track",
		Annotations: map[string]string{needsPersistentStore: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := a.garage.Statuses(cmd.Context(), user)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No committed plans.")
				return nil
			}
			output.PrettyStatuses(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", defaultUser, "user whose plans to check")
	return cmd
}

func (a *app) adviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advice",
		Short: "Explain the options for the configured profile in plain language",
		RunE: func(cmd *cobra.Command, _ []string) error {
			advice, err := a.garage.Advice(cmd.Context(), a.conf.Profile, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), advice.Text)
			return nil
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	var serverConfigPath, maxUploadSize string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srvCfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if maxUploadSize != "" {
				size, err := server.ParseSize(maxUploadSize)
				if err != nil {
					return fmt.Errorf("invalid --max-upload-size: %w", err)
				}
				srvCfg.SetUploadSizeBytes(size)
			}

			logger := a.logger
			if srvCfg.Logging.Level != "" || srvCfg.Logging.Format != "" || srvCfg.Logging.OutputFile != "" {
				logger, err = initializeLogger(srvCfg.Logging, a.logLevel)
				if err != nil {
					return fmt.Errorf("failed to initialize server logger: %w", err)
				}
				defer func() {
					_ = logger.Sync()
				}()
			}

			opts := server.Options{
				MaxUploadSize: srvCfg.UploadSizeBytes(),
				Version:       version,
			}
			if srvCfg.AdviceRateLimit > 0 {
				opts.AdviceLimiter = server.NewRateLimiter(srvCfg.AdviceRateLimit, time.Minute)
			}

			logger.Info("starting server",
				zap.String("op", "main.serve"),
				zap.String("address", srvCfg.Address),
				zap.Int64("maxUploadSize", srvCfg.UploadSizeBytes()),
			)
			return server.Run(cmd.Context(), srvCfg, server.NewHandler(a.garage, logger, opts), logger)
		},
	}
	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&maxUploadSize, "max-upload-size", "", "override the request body limit, e.g. 512K")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and report anything that looks wrong",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			warnings := a.conf.ValidateConfiguration()
			if len(warnings) == 0 {
				fmt.Fprintf(out, "%s: OK, %d vehicles\n", a.configPath, len(a.conf.Vehicles))
				return nil
			}
			fmt.Fprintf(out, "%s: %d warnings\n", a.configPath, len(warnings))
			for _, warning := range warnings {
				fmt.Fprintf(out, "  - %s\n", warning)
			}
			return nil
		},
	}
}
