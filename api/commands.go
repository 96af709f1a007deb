package main

import (
	"fmt"
	"os"

	"events-calendar/data/models"
	"events-calendar/data/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "events-calendar",
		Short: "Event calendar web application",
		Long: `events-calendar serves an event calendar: users register, create events and
join or leave events created by others, through HTML pages or a JSON API.`,
		SilenceUsage: true,
		// Run the serve command by default if no subcommand is specified
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := commandConfig()
			if err := cfg.validateServe(); err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel, cfg.LogFormat)

			db, err := connectToDB(cmd.Context(), cfg.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := &repository.SqlRepo{DB: db}
			if err := repo.RunMigrations(databaseName(cfg.DSN)); err != nil {
				return err
			}

			app, err := newApplication(cfg, repo, logger)
			if err != nil {
				return err
			}
			return app.serve()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := commandConfig()
			newLogger(cfg.LogLevel, cfg.LogFormat)

			db, err := connectToDB(cmd.Context(), cfg.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := &repository.SqlRepo{DB: db}
			return repo.RunMigrations(databaseName(cfg.DSN))
		},
	}

	superuser struct {
		username  string
		password  string
		firstName string
		lastName  string
		staff     bool
		superuser bool
	}

	createSuperuserCmd = &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an account with staff and superuser rights",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := commandConfig()
			newLogger(cfg.LogLevel, cfg.LogFormat)

			if superuser.password == "" {
				superuser.password = os.Getenv("EVENTS_SUPERUSER_PASSWORD")
			}

			db, err := connectToDB(cmd.Context(), cfg.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := &repository.SqlRepo{DB: db}
			u, err := repo.CreateSuperuser(cmd.Context(), models.UserParams{
				Username:  superuser.username,
				Password:  superuser.password,
				FirstName: superuser.firstName,
				LastName:  superuser.lastName,
			}, flagPtr(cmd, "staff", superuser.staff), flagPtr(cmd, "superuser", superuser.superuser))
			if err != nil {
				return err
			}

			log.Info().Int64("user_id", u.ID).Str("username", u.Username).Msg("superuser created")
			return nil
		},
	}
)

// execute runs the root command. It is called once by main.
func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console) (default: json)")

	f := createSuperuserCmd.Flags()
	f.StringVar(&superuser.username, "username", "", "login name")
	f.StringVar(&superuser.password, "password", "", "password (default: $EVENTS_SUPERUSER_PASSWORD)")
	f.StringVar(&superuser.firstName, "first-name", "", "first name")
	f.StringVar(&superuser.lastName, "last-name", "", "last name")
	f.BoolVar(&superuser.staff, "staff", true, "staff flag; must stay true")
	f.BoolVar(&superuser.superuser, "superuser", true, "superuser flag; must stay true")
	_ = createSuperuserCmd.MarkFlagRequired("username")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createSuperuserCmd)
}

// commandConfig loads the environment and applies the persistent flag overrides.
func commandConfig() config {
	cfg := loadConfig()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg
}

// flagPtr returns nil for a flag left at its default so the store applies its
// own default, and the parsed value otherwise.
func flagPtr(cmd *cobra.Command, name string, value bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
