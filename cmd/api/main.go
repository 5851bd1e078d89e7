package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskmaster/tracker/cmd/api/commands"
)

// @title Task Manager Pro API
// @version 1.0.0
// @description Personal task tracker: per-user task CRUD with search, filtering and pagination.

// @host localhost:5000
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Task Manager Pro API server",
		Long:          `Task Manager Pro lets each registered user keep a private list of tasks with search, filtering and pagination.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
