package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wonny/stockwatch/internal/domain/auth"
	"github.com/wonny/stockwatch/internal/service/session"
)

var (
	tokenEmail string
	tokenName  string
	tokenTTL   time.Duration
)

// tokenCmd issues a session token signed with AUTH_JWT_SECRET
var tokenCmd = &cobra.Command{
	Use:     "token <user-id>",
	Short:   "Issue a session token for a user",
	Example: `  stockwatch token u123 --email me@example.com --ttl 24h`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p := session.NewProvider(session.Config{JWTSecret: cfg.Auth.JWTSecret})
		token, err := p.IssueToken(auth.User{ID: args[0], Email: tokenEmail, DisplayName: tokenName}, tokenTTL)
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
