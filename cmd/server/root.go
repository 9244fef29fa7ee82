package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd создаёт корневую команду сервиса.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "otp-auth",
		Short:        "Сервис аутентификации по паролю и одноразовым кодам",
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
