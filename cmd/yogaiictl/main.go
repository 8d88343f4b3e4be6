// Command yogaiictl is the operator CLI of the streak service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/yogaii/yogaii-streak/config"
	"github.com/yogaii/yogaii-streak/internal/application/command"
	"github.com/yogaii/yogaii-streak/internal/bootstrap"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/persistence/postgres"
	"github.com/yogaii/yogaii-streak/internal/interface/http/handlers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "yogaiictl",
		Short:         "Operate the Yogaii streak service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newReconcileCmd())
	root.AddCommand(newWeeklyProgressCmd())
	root.AddCommand(newXPCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newHashKeyCmd())
	return root
}

// openContainer loads configuration from the environment and opens the stores
// without event consumers.
func openContainer(ctx context.Context) (*bootstrap.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := bootstrap.NewLogger(cfg.Observability)
	return bootstrap.New(ctx, cfg, log, bootstrap.Options{})
}

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{Use: "migrate", Short: "Manage the postgres schema"}

	withMigrator := func(cmd *cobra.Command, fn func(*postgres.Migrator) error) error {
		c, err := openContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		if c.Postgres == nil {
			return fmt.Errorf("driver %q manages its schema on open", c.Config.Database.Driver)
		}
		return fn(postgres.NewMigrator(c.Postgres))
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				n, err := m.Migrate(cmd.Context())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
				return nil
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				v, err := m.Rollback(cmd.Context())
				if err != nil {
					return err
				}
				if v == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d\n", v)
				return nil
			})
		},
	})

	migrate.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and their state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				list, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
				for _, mg := range list {
					applied := "-"
					if mg.IsApplied {
						applied = mg.AppliedAt.Format(time.RFC3339)
					}
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", mg.Version, mg.Name, applied)
				}
				return tw.Flush()
			})
		},
	})
	return migrate
}

func newReconcileCmd() *cobra.Command {
	var userID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild a streak profile from its activity history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			c, err := openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.ReconcileProfile.Handle(cmd.Context(), command.ReconcileProfileCommand{UserID: userID, DryRun: dryRun})
			if err != nil {
				return err
			}
			writeDiff(cmd.OutOrStdout(), res.Diff)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "activities=%d applied=%t\n", res.Activities, res.Applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report drift without saving")
	return cmd
}

func newWeeklyProgressCmd() *cobra.Command {
	var userID string
	var all bool

	cmd := &cobra.Command{
		Use:   "weekly-progress",
		Short: "Recompute weekly progress for one user or everyone",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (userID == "") == !all {
				return errors.New("exactly one of --user or --all is required")
			}
			c, err := openContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if all {
				res, err := c.RefreshWeeklyProgress.HandleAll(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}
			p, err := c.RefreshWeeklyProgress.Handle(cmd.Context(), userID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d days this week\n", p.UserID, p.WeeklyProgress, p.WeeklyGoal)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().BoolVar(&all, "all", false, "refresh every profile")
	return cmd
}

// newXPCmd previews the score of a session without touching storage.
func newXPCmd() *cobra.Command {
	var duration int
	var poses []string
	var quality string

	cmd := &cobra.Command{
		Use:   "xp",
		Short: "Preview the XP a session would earn",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if duration < 0 {
				return errors.New("--duration must not be negative")
			}
			q := activity.ParseQuality(quality)
			xp := streak.ComputeXP(duration, len(activity.NormalizePoses(poses)), q)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "xp=%d quality=%s level_at_xp=%d\n", xp, q, streak.ComputeLevel(xp))
			return nil
		},
	}
	cmd.Flags().IntVar(&duration, "duration", 0, "session length in minutes")
	cmd.Flags().StringSliceVar(&poses, "poses", nil, "poses practiced")
	cmd.Flags().StringVar(&quality, "quality", "", "excellent|good|fair")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var userID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := handlers.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).IssueToken(userID, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// newHashKeyCmd prints the bcrypt hash to put in ADMIN_API_KEY_HASHES.
func newHashKeyCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Hash an admin API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), cost)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func writeDiff(w io.Writer, d streak.Diff) {
	if d.IsZero() {
		_, _ = fmt.Fprintln(w, "no drift")
		return
	}
	_, _ = fmt.Fprintf(w, "drift: total_days=%+d xp=%+d current_streak=%+d longest_streak=%+d\n",
		d.TotalDays, d.XP, d.CurrentStreak, d.LongestStreak)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
