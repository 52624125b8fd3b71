package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"github.com/GlebRadaev/marketledger/internal/app"
	"github.com/GlebRadaev/marketledger/internal/config"
	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/dto"
	"github.com/GlebRadaev/marketledger/internal/optimistic"
	"github.com/GlebRadaev/marketledger/internal/pg"
	"github.com/GlebRadaev/marketledger/internal/repo"
	"github.com/GlebRadaev/marketledger/internal/service/accountservice"
	"github.com/GlebRadaev/marketledger/internal/service/authservice"
	"github.com/GlebRadaev/marketledger/internal/settlement"
	"github.com/GlebRadaev/marketledger/pkg/auth"
	"github.com/GlebRadaev/marketledger/pkg/logger"
)

// connect loads config from the environment, applies --database and opens the pool.
func connect(cmd *cobra.Command) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("can't read config: %w", err)
	}
	if dsn, _ := cmd.Flags().GetString("database"); dsn != "" {
		cfg.Database = dsn
	}
	if err := logger.InitLogger(cfg); err != nil {
		return nil, nil, fmt.Errorf("can't init logger: %w", err)
	}
	pool, err := app.GetPgxpool(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("can't connect to database: %w", err)
	}
	return cfg, pool, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			if status {
				return pg.MigrationStatus(pool)
			}
			if err := pg.RunMigrations(pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only print the state of every migration")

	return cmd
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage buyer and merchant accounts",
	}
	cmd.AddCommand(accountCreateCmd())
	cmd.AddCommand(accountTokenCmd())
	cmd.AddCommand(accountMerchantsCmd())
	return cmd
}

func accountCreateCmd() *cobra.Command {
	var accountType, name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an account with a zero balance",
		Example: `  marketctl account create --type MERCHANT --name "Kettle shop"
  marketctl account create --type USER --name alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			txManager := pg.NewTXManager(pool)
			repos := repo.New(pg.New(pool), txManager)
			accounts := accountservice.New(repos.AccountRepo, repos.LedgerRepo, txManager, optimistic.FromConfig(cfg))

			account, err := accounts.Register(cmd.Context(), domain.AccountType(accountType), name)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto.FromAccount(account))
		},
	}
	cmd.Flags().StringVar(&accountType, "type", string(domain.AccountTypeUser), "USER or MERCHANT")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func accountMerchantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merchants",
		Short: "List merchant accounts with their balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, pool, err := connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			txManager := pg.NewTXManager(pool)
			repos := repo.New(pg.New(pool), txManager)
			accounts := accountservice.New(repos.AccountRepo, repos.LedgerRepo, txManager, optimistic.FromConfig(cfg))

			merchants, err := accounts.ListMerchants(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lo.Map(merchants, func(a domain.Account, _ int) dto.AccountResponseDTO {
				return dto.FromAccount(&a)
			}))
		},
	}
}

func accountTokenCmd() *cobra.Command {
	var (
		id  int
		ttl time.Duration
	)

	cmd := &cobra.Command{
		Use:     "token",
		Short:   "Issue a bearer token for an account",
		Long:    "Issue a bearer token for an existing account. The role claim is taken from the account type.",
		Example: "  marketctl account token --id 2 --ttl 1h",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id <= 0 {
				return fmt.Errorf("--id must be positive")
			}

			cfg, pool, err := connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			repos := repo.New(pg.New(pool), pg.NewTXManager(pool))
			tokens := authservice.New(repos.AccountRepo, auth.NewJWTService(cfg.JWTSecret))

			token, err := tokens.IssueToken(cmd.Context(), id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "account id")
	cmd.Flags().DurationVar(&ttl, "ttl", authservice.DefaultTokenTTL, "token lifetime")

	return cmd
}

func settleCmd() *cobra.Command {
	var (
		merchantID int
		date       string
	)

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Reconcile merchant days against the ledger",
		Long: `Reconcile completed and refunded orders against the ledger.

Without --merchant every merchant is settled. Without --date the previous UTC day is used.
Merchants already settled for the date are reported as skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			merchant, day, err := settleArgs(merchantID, date)
			if err != nil {
				return err
			}

			cfg, pool, err := connect(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			repos := repo.New(pg.New(pool), pg.NewTXManager(pool))
			svc := app.NewSettlementService(cfg, repos)
			defer svc.Close()

			report, runErr := svc.RunSettlement(cmd.Context(), merchant, day)
			if err := printJSON(cmd.OutOrStdout(), reportOutput(report)); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().IntVar(&merchantID, "merchant", 0, "merchant account id, all merchants when omitted")
	cmd.Flags().StringVar(&date, "date", "", "day to settle as YYYY-MM-DD")

	return cmd
}

func settleArgs(merchantID int, date string) (mo.Option[int], mo.Option[time.Time], error) {
	merchant := mo.None[int]()
	if merchantID < 0 {
		return merchant, mo.None[time.Time](), fmt.Errorf("--merchant must be positive")
	}
	if merchantID > 0 {
		merchant = mo.Some(merchantID)
	}
	if date == "" {
		return merchant, mo.None[time.Time](), nil
	}
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return merchant, mo.None[time.Time](), fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return merchant, mo.Some(day), nil
}

type settleOutput struct {
	Date    string                      `json:"date"`
	Settled []dto.SettlementResponseDTO `json:"settled"`
	Skipped []int                       `json:"skipped"`
	Failed  []int                       `json:"failed"`
}

func reportOutput(report settlement.Report) settleOutput {
	return settleOutput{
		Date: report.Date.Format(time.DateOnly),
		Settled: lo.Map(report.Settled, func(s domain.Settlement, _ int) dto.SettlementResponseDTO {
			return dto.FromSettlement(&s)
		}),
		Skipped: report.Skipped,
		Failed:  report.Failed,
	}
}
