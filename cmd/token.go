package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-assistant/internal/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a chat gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		ttl := cfg.Security.GatewayTokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}

		svc := auth.NewService(auth.NewJWTTokenGenerator(cfg.Security.GatewaySecret, ttl), newCLILogger("warn"))
		token, err := svc.IssueGatewayToken(tokenSubject)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(token); err != nil {
			return fmt.Errorf("write token: %w", err)
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenSubject, "subject", "s", "", "gateway name the token is issued to")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, defaults to security.gateway_token_ttl")
	_ = tokenCmd.MarkFlagRequired("subject")
}
