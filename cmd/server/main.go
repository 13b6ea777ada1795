package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"termtrivia/internal/config"
	"termtrivia/internal/question"
	"termtrivia/internal/server"
	"termtrivia/internal/storage"
	"termtrivia/internal/user"
)

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var (
		cfgFile string
		listen  string
		dataDir string
	)

	v := viper.New()
	v.SetEnvPrefix("TERMTRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "termtrivia-server",
		Short:         "Multiplayer trivia game server",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listen
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}

			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfgFile, "config", "c", "", "path to config file (env: TERMTRIVIA_CONFIG)")
	fs.StringVarP(&listen, "listen", "l", "", "listen address, overrides config (env: TERMTRIVIA_LISTEN)")
	fs.StringVarP(&dataDir, "data-dir", "d", "", "data directory, overrides config (env: TERMTRIVIA_DATA_DIR)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	return cmd
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := storage.New(cfg.DataDir)

	questions, err := store.LoadQuestions()
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}
	bank, err := question.NewBank(questions)
	if err != nil {
		return fmt.Errorf("failed to build question bank: %w", err)
	}

	records, err := store.LoadUsers()
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	users := user.NewStore(records)

	srv := server.New(cfg, bank, users, store)
	if err := srv.Listen(); err != nil {
		return err
	}
	return srv.Serve(ctx)
}
