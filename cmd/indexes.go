package cmd

import (
	"critiq/database"
	"critiq/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the MongoDB indexes and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Close()

		if err := cfg.Validate(true); err != nil {
			return err
		}
		if err := database.ConnectWithRetry(cmd.Context(), cfg.MongoURI, cfg.MongoDatabase, 3, 0); err != nil {
			return err
		}
		defer database.Disconnect()

		if err := database.EnsureIndexes(cmd.Context(), database.DB); err != nil {
			return err
		}
		for collection, idx := range database.Indexes() {
			logger.Log.Info("Indexes ensured", zap.String("collection", collection), zap.Int("count", len(idx)))
		}
		return nil
	},
}
