package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gdsfactory/gplugins-go/pkg/simdb"
)

// =============================================================================
// db - Results database
// =============================================================================

// dbCommand creates the db command group.
func (c *CLI) dbCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the results database",
	}

	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: XDG data dir)")

	cmd.AddCommand(c.dbInitCommand(&dbPath))
	cmd.AddCommand(c.dbListCommand(&dbPath))

	return cmd
}

// dbInitCommand creates the db init command.
func (c *CLI) dbInitCommand(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the results database and apply migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDBPath(*dbPath)
			if err != nil {
				return err
			}
			db, err := simdb.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()

			printSuccess("Database ready")
			printFile(path)
			return nil
		},
	}
}

// dbListCommand creates the db list command.
func (c *CLI) dbListCommand(dbPath *string) *cobra.Command {
	var (
		component string
		kind      string
		since     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded simulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveDBPath(*dbPath)
			if err != nil {
				return err
			}
			db, err := simdb.Open(path)
			if err != nil {
				return err
			}
			defer db.Close()

			filter := simdb.Filter{Component: component, Kind: kind}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			sims, err := db.Simulations(filter)
			if err != nil {
				return err
			}
			if len(sims) == 0 {
				printInfo("No simulations recorded")
				return nil
			}

			t := newTable("ID", "Key", "Component", "Kind", "Created")
			for _, s := range sims {
				t.Row(
					strconv.FormatInt(s.ID, 10),
					shortKey(s.Key),
					s.Component,
					s.Kind,
					s.CreatedAt.Local().Format("2006-01-02 15:04"),
				)
			}
			fmt.Println(t.Render())
			printDetail("%d simulations", len(sims))
			return nil
		},
	}

	cmd.Flags().StringVar(&component, "component", "", "filter by component name")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by simulation kind")
	cmd.Flags().DurationVar(&since, "since", 0, "only runs newer than this (e.g. 24h)")

	return cmd
}

// resolveDBPath picks the database location: the flag when set, otherwise
// the default under the XDG data dir.
func resolveDBPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return defaultDBPath()
}
