package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"bookstore/internal/api"
	"bookstore/internal/platform/logging"
	"bookstore/internal/session"
	"bookstore/internal/tokenstore"
)

const envPrefix = "BOOKSTORE"

type rootOptions struct {
	cfgFile   string
	apiURL    string
	tokenFile string
	namespace string
	logLevel  string
	timeout   time.Duration

	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &rootOptions{out: out, errOut: errOut}
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "bookstorectl",
		Short:        "Terminal client for the bookstore API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, v, opts)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "",
		"config file (default is $HOME/.bookstorectl.yml)")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", api.DefaultBaseURL,
		"base URL of the bookstore API")
	cmd.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(),
		"file holding the bearer token")
	cmd.PersistentFlags().StringVar(&opts.namespace, "namespace", "",
		"key namespace inside the token file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"log level (debug, info, warn, error)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second,
		"timeout for each API request")

	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newLogoutCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newOAuthCompleteCmd(opts))
	cmd.AddCommand(newBooksCmd(opts))

	return cmd
}

// initConfig reads the config file and ENV variables if set.
func initConfig(cmd *cobra.Command, v *viper.Viper, opts *rootOptions) error {
	if opts.cfgFile != "" {
		v.SetConfigFile(opts.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".bookstorectl")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(opts.errOut, "Using config file:", v.ConfigFileUsed())
	} else if opts.cfgFile != "" {
		return fmt.Errorf("read config %s: %w", opts.cfgFile, err)
	}

	bindFlags(cmd, v, opts.errOut)
	return nil
}

// bindFlags applies config file and environment values to every flag the
// user did not set explicitly.
func bindFlags(cmd *cobra.Command, v *viper.Viper, errOut io.Writer) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes, so --api-url reads BOOKSTORE_API_URL.
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(errOut, "Could not bind env var %s: %v\n", f.Name, err)
			}
		}
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(errOut, "Could not set flag value for %s: %v\n", f.Name, err)
			}
		}
	})
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".bookstore-token.json"
	}
	return filepath.Join(dir, "bookstore", "token.json")
}

// openSession builds a manager over the token file and an API client that
// authenticates with it. The caller closes the manager.
func (o *rootOptions) openSession(ctx context.Context) (*session.Manager, *api.Client, error) {
	logger := logging.NewWithWriter(o.errOut, o.logLevel)

	client, err := api.NewClient(o.apiURL, api.WithTimeout(o.timeout), api.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	store := tokenstore.New(tokenstore.NewFileBackend(o.tokenFile), o.namespace)
	authed := client.WithTokens(store)
	m, err := session.NewManager(ctx, store, authed,
		session.WithLogger(logger),
		session.WithProfileTimeout(o.timeout),
	)
	if err != nil {
		return nil, nil, err
	}
	return m, authed, nil
}
