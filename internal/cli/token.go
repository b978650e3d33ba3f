package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"english-quiz-service/internal/app"
	"english-quiz-service/internal/auth"
	"english-quiz-service/internal/config"
	"english-quiz-service/internal/domain"
)

// NewTokenCmd mints a session token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var studentID, name, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			r := domain.Role(role)
			switch r {
			case domain.RoleStudent, domain.RoleTeacher, domain.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			svc := auth.NewService(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 8*time.Hour))
			token, err := svc.Issue(app.SessionContext{StudentID: studentID, DisplayName: name, Role: r})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student id (token subject)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "student, teacher or admin")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}
