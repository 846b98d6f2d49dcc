// imposter-cli is the admin tool for a lobby database: list sessions,
// sweep expired ones, mint invite codes. It opens the bolt file directly,
// so stop the server first or point it at a copy.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/imposter-games/imposter/internal/codeutil"
	"github.com/imposter-games/imposter/internal/database"
	lobbyDb "github.com/imposter-games/imposter/internal/database/lobby/database"
	"github.com/imposter-games/imposter/internal/logging"
	"github.com/imposter-games/imposter/internal/shutdown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "imposter-cli",
		Short:         "Admin tool for imposter lobby databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "imposter.db", "path to the bolt file")

	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and clean up sessions",
	}

	sessions.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every session document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(dbPath, func(store *lobbyDb.DB) error {
				list, err := store.FetchAll()
				if err != nil {
					return err
				}

				for _, s := range list {
					expires := "-"
					if s.ExpiresAt != nil {
						expires = s.ExpiresAt.Format(time.RFC3339)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\thost=%s\texpires=%s\n",
						s.InviteCode, s.Status, s.HostIdentity, expires)
				}
				return nil
			})
		},
	})

	sessions.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete sessions past their expiry watermark",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(dbPath, func(store *lobbyDb.DB) error {
				n, err := store.Sweep(time.Now().UTC())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "swept %d sessions\n", n)
				return nil
			})
		},
	})

	var count int
	code := &cobra.Command{
		Use:   "code",
		Short: "Mint invite codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for i := 0; i < count; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), codeutil.Generate())
			}
			return nil
		},
	}
	code.Flags().IntVarP(&count, "count", "n", 1, "how many codes to print")

	root.AddCommand(sessions, code)

	return root
}

func withStore(path string, fn func(store *lobbyDb.DB) error) error {
	ctx, done := shutdown.New()
	defer done()
	ctx = logging.WithLogger(ctx, logging.NewLogger(false))

	db, err := database.NewFromEnv(ctx, &database.Config{FilePath: path})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close(ctx)

	return fn(lobbyDb.New(db))
}
