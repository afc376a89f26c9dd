package main

import (
	"fmt"

	"labdesk/internal/app/seed"
	"labdesk/internal/app/service"
	"labdesk/internal/domain/repository"

	"github.com/spf13/cobra"
)

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and feedback from a YAML fixture",
		Long: `Load users and feedback from a YAML fixture.

Existing users (by email) and existing feedback (by author email and message)
are skipped, so the same file can be applied repeatedly.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seed.Load(file)
			if err != nil {
				return err
			}
			db, dialect, err := rootOpts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			userRepo := repository.NewUserRepository(db, dialect)
			feedbackRepo := repository.NewFeedbackRepository(db, dialect)
			// Seeding opens no sessions, so the user service runs without a session store.
			users := service.NewUserService(userRepo, feedbackRepo, nil, nil, db)
			feedback := service.NewFeedbackService(feedbackRepo)

			res, err := seed.Apply(cmd.Context(), users, feedback, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users created: %d, skipped: %d, feedback created: %d, skipped: %d\n",
				res.UsersCreated, res.UsersSkipped, res.FeedbackCreated, res.FeedbackSkipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "seed fixture")
	return cmd
}
