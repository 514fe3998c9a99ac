package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/auth"
	"github.com/iho/loanledger/internal/infrastructure/config"
	"github.com/iho/loanledger/internal/infrastructure/postgres"
)

type amountBody struct {
	Amount string `json:"amount"`
}

// parseAmount rejects malformed amounts before a request is made.
func parseAmount(s string) (amountBody, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return amountBody{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amountBody{Amount: d.String()}, nil
}

func customerPath(accountNumber string, suffix string) string {
	return "/api/v1/customers/" + url.PathEscape(accountNumber) + suffix
}

// request builds a RunE that sends one API call and prints the response.
func request(opts *clientOptions, method string, path func(args []string) (string, error), body func(args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		p, err := path(args)
		if err != nil {
			return err
		}

		var payload any
		if body != nil {
			if payload, err = body(args); err != nil {
				return err
			}
		}

		data, err := newAPIClient(opts).do(cmd.Context(), method, p, payload)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	}
}

func fixed(p string) func([]string) (string, error) {
	return func([]string) (string, error) { return p, nil }
}

func forCustomer(suffix string) func([]string) (string, error) {
	return func(args []string) (string, error) { return customerPath(args[0], suffix), nil }
}

func amountArg(i int) func([]string) (any, error) {
	return func(args []string) (any, error) { return parseAmount(args[i]) }
}

func customerCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Customer accounts",
	}

	var limit, offset int

	transactions := &cobra.Command{
		Use:   "transactions <account-number>",
		Short: "List a customer's transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: request(opts, http.MethodGet, func(args []string) (string, error) {
			return fmt.Sprintf("%s?limit=%d&offset=%d", customerPath(args[0], "/transactions"), limit, offset), nil
		}, nil),
	}
	transactions.Flags().IntVar(&limit, "limit", 20, "Page size")
	transactions.Flags().IntVar(&offset, "offset", 0, "Page offset")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "open <account-number>",
			Short: "Open a customer account",
			Args:  cobra.ExactArgs(1),
			RunE: request(opts, http.MethodPost, fixed("/api/v1/customers"), func(args []string) (any, error) {
				return map[string]string{"account_number": args[0]}, nil
			}),
		},
		&cobra.Command{
			Use:   "show <account-number>",
			Short: "Show a customer's balances",
			Args:  cobra.ExactArgs(1),
			RunE:  request(opts, http.MethodGet, forCustomer(""), nil),
		},
		transactions,
	)

	return cmd
}

func depositCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Micro-deposit verification",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "send <account-number>",
			Short: "Send a verification micro-deposit",
			Args:  cobra.ExactArgs(1),
			RunE:  request(opts, http.MethodPost, forCustomer("/micro-deposits"), nil),
		},
		&cobra.Command{
			Use:   "confirm <account-number> <amount>",
			Short: "Confirm the amount of the latest micro-deposit",
			Args:  cobra.ExactArgs(2),
			RunE:  request(opts, http.MethodPost, forCustomer("/micro-deposits/confirm"), amountArg(1)),
		},
	)

	return cmd
}

func loanCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Loan disbursement and repayment",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "disburse <account-number> <amount>",
			Short: "Disburse a loan to a verified customer",
			Args:  cobra.ExactArgs(2),
			RunE:  request(opts, http.MethodPost, forCustomer("/loans/disburse"), amountArg(1)),
		},
		&cobra.Command{
			Use:   "repay <account-number> <amount>",
			Short: "Record a loan repayment",
			Args:  cobra.ExactArgs(2),
			RunE:  request(opts, http.MethodPost, forCustomer("/loans/repay"), amountArg(1)),
		},
	)

	return cmd
}

func fundCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Bank fund",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the fund balance",
			Args:  cobra.NoArgs,
			RunE:  request(opts, http.MethodGet, fixed("/api/v1/fund"), nil),
		},
		&cobra.Command{
			Use:   "init <amount>",
			Short: "Initialize the fund with an opening balance",
			Args:  cobra.ExactArgs(1),
			RunE:  request(opts, http.MethodPost, fixed("/api/v1/fund"), amountArg(0)),
		},
	)

	return cmd
}

func ledgerCmd(opts *clientOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	var account string
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Check customer balances against the transaction log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/ledger/reconciliation"
			if account != "" {
				path = customerPath(account, "/reconciliation")
			}

			data, err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil)
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				_ = printJSON(cmd.OutOrStdout(), data)
				return errors.New("reconciliation FAILED: discrepancies found")
			}
			if err != nil {
				return err
			}

			if err := printJSON(cmd.OutOrStdout(), data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Reconciliation PASSED")
			return nil
		},
	}
	reconcile.Flags().StringVar(&account, "account", "", "Reconcile a single customer")

	cmd.AddCommand(reconcile)
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "API tokens",
	}

	var (
		subject string
		role    string
		secret  string
		ttl     time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("a signing secret is required (--secret or JWT_SECRET)")
			}
			r := domain.Role(role)
			if !r.IsValid() {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(subject, r)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	issue.Flags().StringVar(&subject, "subject", "cli", "Token subject")
	issue.Flags().StringVar(&role, "role", string(domain.RoleViewer), "Role: admin, operator or viewer")
	issue.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC signing secret")
	issue.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	cmd.AddCommand(issue)
	return cmd
}

// migrator is satisfied by postgres.Migrator.
type migrator interface {
	Up() error
	Down() error
}

var newMigrator = func(cfg *config.Config) migrator {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, log)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations (DATABASE_URL, MIGRATIONS_PATH)",
	}

	run := func(step func(migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return step(newMigrator(cfg))
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  run(migrator.Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE:  run(migrator.Down),
		},
	)

	return cmd
}
