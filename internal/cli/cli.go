package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/tableside/internal/app"
	"github.com/Additional-Code/tableside/internal/migration"
	"github.com/Additional-Code/tableside/internal/seeder"
)

const stopTimeout = 10 * time.Second

// NewRootCommand builds the root tableside CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tableside",
		Short:         "Tableside order platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newWorkerCmd())

	return root
}

// Execute runs the tableside CLI until it finishes or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP API, realtime stream and gRPC health service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Module)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withMigrator(func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
			if err := mig.Up(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		}),
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: withMigrator(func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			if err := mig.Down(ctx, steps, all); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
			return nil
		}),
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	downCmd.Flags().Bool("all", false, "Roll back every applied migration")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the applied schema version",
		RunE: withMigrator(func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
			version, err := mig.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		}),
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

// withMigrator starts the core graph with a migrator for the duration of fn.
func withMigrator(fn func(context.Context, *cobra.Command, *migration.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		var mig *migration.Migrator
		opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
		return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
			return fn(ctx, cmd, mig)
		})
	}
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed a demo restaurant and menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, _ := cmd.Flags().GetString("owner")
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := seed.Catalog(ctx, owner); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seed data applied for restaurant %s\n", seeder.DemoRestaurantID)
				return nil
			})
		},
	}
	cmd.Flags().String("owner", "", "User id to register as owner of the demo restaurant")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume order lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

func runUntilDone(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts, app.Logging)
	if err := application.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-application.Wait():
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
