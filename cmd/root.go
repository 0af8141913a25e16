// root.go viper root command code
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/diamondadamsteven/violin-engine/cmd/realtime"
	"github.com/diamondadamsteven/violin-engine/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "violin-engine",
		Short: "Real-time audio ingestion and analysis server",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		log.Printf("error setting up flags: %v\n", err)
	}

	realtimeCmd := realtime.Command(settings)
	rootCmd.AddCommand(realtimeCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initialize(); err != nil {
			return fmt.Errorf("error initializing: %w", err)
		}
		return nil
	}

	return rootCmd
}

// initialize is called before any subcommand runs, but after the context is ready.
func initialize() error {
	return nil
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Database.Driver, "db-driver", viper.GetString("database.driver"), "Database driver (mysql or sqlite)")
	rootCmd.PersistentFlags().StringVar(&settings.Database.DSN, "db-dsn", viper.GetString("database.dsn"), "Database connection string")
	rootCmd.PersistentFlags().StringVar(&settings.WorkDir, "workdir", viper.GetString("workdir"), "Root directory for per-recording working files")
	rootCmd.PersistentFlags().StringVar(&settings.NoteService.Host, "note-service-host", viper.GetString("noteservice.host"), "Host of the onset/note detection microservice")
	rootCmd.PersistentFlags().IntVar(&settings.NoteService.Port, "note-service-port", viper.GetInt("noteservice.port"), "Port of the onset/note detection microservice")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
