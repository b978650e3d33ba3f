package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"english-quiz-service/internal/config"
	"english-quiz-service/internal/importer"
)

// NewImportCmd loads quizzes from an xlsx workbook into the configured database.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import quizzes from an Excel workbook (Quizzes and Questions sheets)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.close()
			if b.saver == nil {
				return fmt.Errorf("import needs postgres or sqlite configured")
			}

			result, err := importer.Import(ctx, file, b.saver, log)
			if err != nil {
				return err
			}
			if b.redis != nil {
				for _, id := range result.QuizIDs {
					if err := b.redis.Invalidate(ctx, id); err != nil {
						log.Warn("invalidate cached quiz", zap.String("quiz_id", id), zap.Error(err))
					}
				}
			}
			for _, msg := range result.Errors {
				log.Warn("skipped row", zap.String("reason", msg))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d quizzes (%d questions), skipped %d rows\n",
				result.Quizzes, result.Questions, result.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the .xlsx workbook")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
