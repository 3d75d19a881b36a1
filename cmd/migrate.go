package cmd

import (
	"fmt"

	"love-vault-backend/internal/config"
	"love-vault-backend/internal/db"

	"github.com/spf13/cobra"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		setupLogger(cfg.Log.Level, cfg.Log.Format)

		steps := migrateSteps
		switch args[0] {
		case "up":
			// 0 applies everything pending
		case "down":
			if steps == 0 {
				steps = 1
			}
			steps = -steps
		default:
			return fmt.Errorf("unknown direction %q", args[0])
		}

		return db.Migrate(cfg.Database.MigrateURL(), steps)
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "number of migrations to apply (down defaults to 1)")
}
