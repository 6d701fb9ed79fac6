package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bananalabs-oss/troupe/internal/config"
	"github.com/bananalabs-oss/troupe/internal/database"
	"github.com/bananalabs-oss/troupe/internal/logging"
	"github.com/bananalabs-oss/troupe/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type cli struct {
	verbose bool
	timeout time.Duration
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "troupectl",
		Short: "Administer the Troupe party database",
		Long: `troupectl talks to the party database directly, using the same
DATABASE_TYPE / SQLITE_PATH / MYSQL_* environment as the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			log, err := logging.New(level)
			if err != nil {
				return err
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "per-statement timeout")

	root.AddCommand(c.migrateCmd(), c.execCmd(), c.findCmd())
	return root
}

func (c *cli) open() (*bun.DB, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, err
	}
	return database.Connect(*cfg, c.log)
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the party tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := c.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db, c.log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations complete")
			return nil
		},
	}
}

func (c *cli) execCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "exec [statement...]",
		Short: "Run raw SQL statements in order",
		Long: `Runs each statement in order against the party database. Execution
stops at the first failing statement; earlier statements are NOT rolled back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			statements := append([]string(nil), args...)
			if file != "" {
				var r io.Reader = cmd.InOrStdin()
				if file != "-" {
					f, err := os.Open(file)
					if err != nil {
						return err
					}
					defer f.Close()
					r = f
				}
				data, err := io.ReadAll(r)
				if err != nil {
					return err
				}
				statements = append(statements, splitStatements(string(data))...)
			}
			if len(statements) == 0 {
				return fmt.Errorf("no statements given")
			}

			db, err := c.open()
			if err != nil {
				return err
			}
			defer db.Close()

			st := store.New(db, c.log, c.timeout)
			if err := st.ExecuteRaw(cmd.Context(), statements); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "executed %d statement(s)\n", len(statements))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read ';'-separated statements from a file (- for stdin)")
	return cmd
}

func (c *cli) findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <player-id>",
		Short: "Show the party and role of a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid player id: %w", err)
			}

			db, err := c.open()
			if err != nil {
				return err
			}
			defer db.Close()

			st := store.New(db, c.log, c.timeout)
			ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
			defer cancel()

			partyID, found, err := st.FindPartyOf(ctx, player)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not in a party\n", player)
				return nil
			}
			role, err := st.Role(ctx, partyID, player)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s of party %d\n", player, role, partyID)
			return nil
		},
	}
}

// splitStatements splits a script on ';' and drops blank statements.
// Semicolons inside string literals are not supported.
func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
