package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"drive-go/internal/app"
	"drive-go/internal/config"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the defaults.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// withApp reads the config, creates a DriveApp and runs fn with it. The
// outcome of fn is recorded on the app's operation before it is closed.
// command identifies the CLI command being run (e.g. "serve", "user add").
func withApp(ctx context.Context, command string, fn func(a *app.DriveApp) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.NewDriveApp(ctx, cfg, command)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	err = fn(a)
	a.Finish(err)
	if closeErr := a.Close(); err == nil {
		err = closeErr
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:          "drive",
	Short:        "Cloud drive server with sharing and permissions",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		promptSecret, _ := cmd.Flags().GetBool("prompt-secret")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		secret := strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
		if promptSecret {
			if secret, err = readSecret(); err != nil {
				return err
			}
		}

		cfg := config.NewConfig(defaults["base_dir"], secret)
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Run 'drive db migrate' before starting the server.")
		return nil
	},
}

// readSecret prompts for the JWT signing secret without echoing it when
// stdin is a terminal.
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(os.Stderr, "JWT secret: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Log Level:  %s\n", cfg.LogLevel)
		fmt.Printf("Listen:     %s\n", cfg.Server.Addr)
		fmt.Printf("Client URL: %s\n", cfg.Server.ClientURL)
		fmt.Printf("Max Upload: %s\n", humanize.IBytes(uint64(cfg.Server.MaxUploadBytes)))
		fmt.Printf("Database:   %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		switch cfg.Storage.Type {
		case "s3":
			fmt.Printf("Storage:    s3://%s/%s\n", cfg.Storage.S3Bucket, cfg.Storage.S3Prefix)
		case "filesystem":
			fmt.Printf("Storage:    filesystem %s\n", cfg.Storage.FSRoot)
		default:
			fmt.Printf("Storage:    %s\n", cfg.Storage.Type)
		}
		fmt.Printf("Mail:       %s\n", cfg.Mail.Type)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the metadata database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := app.MigrateDatabase(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Database at schema version %d\n", st.Current)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := app.DatabaseStatus(cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Current: %d\n", st.Current)
		fmt.Printf("Latest:  %d\n", st.Latest)
		if st.Dirty {
			fmt.Println("Dirty:   yes (a migration failed part way)")
		}
		if n := st.Pending(); n > 0 {
			fmt.Printf("%d migration(s) pending, run 'drive db migrate'\n", n)
		}
		return nil
	},
}

var dbSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		schema, err := app.DatabaseSchema(cfg)
		if err != nil {
			return err
		}
		fmt.Print(schema)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a snapshot of the database to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "db backup", func(a *app.DriveApp) error {
			if err := a.BackupDatabase(args[0]); err != nil {
				return err
			}
			fmt.Printf("Database backed up to %s\n", args[0])
			return nil
		})
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, "serve", func(a *app.DriveApp) error {
			return a.Serve(ctx)
		})
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")

		return withApp(cmd.Context(), "user add", func(a *app.DriveApp) error {
			user, err := a.AddUser(cmd.Context(), args[0], firstName, lastName)
			if err != nil {
				return fmt.Errorf("adding user: %w", err)
			}
			fmt.Printf("Added user %s (%s)\n", user.Email, user.ID)
			return nil
		})
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "user list", func(a *app.DriveApp) error {
			users, err := a.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			if len(users) == 0 {
				fmt.Println("No users registered.")
				return nil
			}

			for _, u := range users {
				name := strings.TrimSpace(u.FirstName + " " + u.LastName)
				fmt.Printf("%s  %-30s  %-20s  %s\n",
					u.ID,
					u.Email,
					name,
					u.CreatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		})
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token EMAIL",
	Short: "Issue an API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		return withApp(cmd.Context(), "user token", func(a *app.DriveApp) error {
			token, err := a.IssueToken(cmd.Context(), args[0], ttl)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			fmt.Println(token)
			return nil
		})
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls EMAIL [DIR]",
	Short: "List a user's directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "/"
		if len(args) > 1 {
			dir = args[1]
		}

		return withApp(cmd.Context(), "ls", func(a *app.DriveApp) error {
			page, err := a.ListEntries(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}

			if len(page.Items) == 0 {
				fmt.Println("No entries.")
				return nil
			}

			for _, e := range page.Items {
				kind, size := "d", "-"
				if !e.IsDir() {
					kind = "f"
					if e.Size != nil {
						size = humanize.IBytes(uint64(*e.Size))
					}
				}
				public := " "
				if e.IsPublic {
					public = "p"
				}
				fmt.Printf("%s%s  %10s  %-14s  %s\n",
					kind,
					public,
					size,
					humanize.Time(e.UpdatedAt),
					e.Name,
				)
			}
			if int64(len(page.Items)) < page.Total {
				fmt.Printf("... %d of %d shown\n", len(page.Items), page.Total)
			}
			return nil
		})
	},
}

// permissions command
var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List permission kinds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "permissions", func(a *app.DriveApp) error {
			perms, err := a.ListPermissions(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range perms {
				fmt.Println(p)
			}
			return nil
		})
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("prompt-secret", false, "Read the JWT secret from stdin instead of generating one")
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbSchemaCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// user subcommands
	userCmd.AddCommand(userAddCmd)
	userAddCmd.Flags().String("first-name", "", "First name")
	userAddCmd.Flags().String("last-name", "", "Last name")
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userTokenCmd)
	userTokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default: auth.token_ttl_minutes)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(permissionsCmd)
}
