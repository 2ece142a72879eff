package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"wonchon/internal/api"
	"wonchon/internal/auth"
	"wonchon/internal/backend"
	"wonchon/internal/cli"
	"wonchon/internal/config"
	"wonchon/internal/draft"
	"wonchon/internal/kv"
)

// env holds what the store and API commands share. It is opened lazily so
// the pure commands run without any configuration.
type env struct {
	tokens  *auth.TokenStore
	client  *api.Client
	drafts  *draft.Store
	cleanup func() error
}

func (e *env) Close() error {
	if e.cleanup == nil {
		return nil
	}
	return e.cleanup()
}

var logLevel string

// openEnv is replaced in tests.
var openEnv = func(ctx context.Context) (*env, error) {
	cli.LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(cli.SetupLogger(logLevel)).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	return newEnv(res.Store, cfg.TokenPassphrase, api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
	}, res.Cleanup), nil
}

func newEnv(store kv.Store, passphrase string, apiCfg api.Config, cleanup func() error) *env {
	tokens := auth.NewTokenStore(store, passphrase)
	return &env{
		tokens:  tokens,
		client:  api.NewClient(apiCfg, tokens),
		drafts:  draft.NewStore(store),
		cleanup: cleanup,
	}
}

// withEnv opens the environment for the duration of fn.
func withEnv(cmd *cobra.Command, fn func(*env) error) error {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wonchonctl",
		Short:        "Operator tools for withholding tax filings",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.SetupLogger(logLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		calcCmd(),
		dueDateCmd(),
		draftCmd(),
		loginCmd(),
		logoutCmd(),
		statusCmd(),
		receiptCmd(),
		exportCmd(),
	)
	return root
}

func Execute() error {
	return newRootCmd().Execute()
}

func parseBusinessID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid business id %q", s)
	}
	return id, nil
}

func parseDraftKey(args []string) (draft.Key, error) {
	id, err := parseBusinessID(args[0])
	if err != nil {
		return draft.Key{}, err
	}
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return draft.Key{}, fmt.Errorf("invalid year %q", args[1])
	}
	month, err := strconv.Atoi(args[2])
	if err != nil {
		return draft.Key{}, fmt.Errorf("invalid month %q", args[2])
	}
	key := draft.NewKey(id, year, month)
	if err := key.Period.Validate(); err != nil {
		return draft.Key{}, err
	}
	return key, nil
}
