package main

import (
	"github.com/spf13/cobra"

	"termtrivia/internal/client"
)

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var (
		addr     string
		username string
	)

	cmd := &cobra.Command{
		Use:           "termtrivia",
		Short:         "Terminal client for the trivia game server",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(addr, username)
			return c.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:4000", "server address")
	cmd.Flags().StringVarP(&username, "username", "u", "", "player username")
	cmd.MarkFlagRequired("username")

	return cmd
}
