package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rentflow/rentflow/shared/config"
	"github.com/rentflow/rentflow/shared/models"
)

// pipelineModels is every table owned by the onboarding pipeline. The
// notifier's DLQ table migrates itself at startup.
func pipelineModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.ScreeningProfile{},
		&models.Occupant{},
		&models.IncomeSource{},
		&models.IncomeDocument{},
		&models.Residence{},
		&models.Viewing{},
		&models.Application{},
		&models.Tenancy{},
	}
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply the onboarding pipeline schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.ConnectDatabase()
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(pipelineModels()...); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Schema is up to date")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report which pipeline tables exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.ConnectDatabase()
			if err != nil {
				return err
			}
			migrator := db.Migrator()
			for _, model := range pipelineModels() {
				state := "missing"
				if migrator.HasTable(model) {
					state = "present"
				}
				fmt.Printf("%-24T %s\n", model, state)
			}
			return nil
		},
	}
}

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Rentflow schema migration tool",
	}

	rootCmd.AddCommand(
		upCmd(),
		statusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
