package cmd

import (
	"fmt"

	"go-gin-event-management/internal/auth"
	"go-gin-event-management/internal/database"
	"go-gin-event-management/internal/repository"
	"go-gin-event-management/internal/service"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant the admin role to an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pool, err := database.InitDatabase(&cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		// promote 只用到 repository，token 相關元件不會被呼叫
		svc := service.NewUserService(
			repository.NewUserRepository(pool),
			auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenExpiry, cfg.Auth.TokenIssuer),
			auth.NewPasswordHasher(cfg.Auth.BcryptCost),
			nil,
		)

		user, err := svc.Promote(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.Email, user.UserID, user.Role)
		return nil
	},
}

func init() {
	userCmd.AddCommand(promoteCmd)
}
