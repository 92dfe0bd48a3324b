package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quinn/daybook/internal/config"
	"github.com/quinn/daybook/internal/output"
)

var (
	authKey    string
	authUser   string
	authEmail  string
	authServer string
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage backend credentials",
	GroupID: "system",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store backend credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if authKey == "" {
			output.Error("--key is required")
			return cmd.Help()
		}
		deviceID, err := config.GetDeviceID()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		creds := &config.AuthCredentials{
			APIKey:    authKey,
			UserID:    authUser,
			Email:     authEmail,
			ServerURL: authServer,
			DeviceID:  deviceID,
		}
		if err := config.SaveAuth(creds); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("credentials saved")
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ClearAuth(); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("logged out")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication state",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := config.LoadAuth()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if creds == nil && !config.IsAuthenticated() {
			output.Info("not authenticated")
			return nil
		}
		output.Success("authenticated")
		if creds != nil {
			if creds.Email != "" {
				output.Info("  email  %s", creds.Email)
			}
			if creds.UserID != "" {
				output.Info("  user   %s", creds.UserID)
			}
			output.Subtle("  device %s", creds.DeviceID)
		}
		output.Subtle("  server %s", config.GetServerURL())
		return nil
	},
}

func init() {
	authLoginCmd.Flags().StringVar(&authKey, "key", "", "API key")
	authLoginCmd.Flags().StringVar(&authUser, "user", "", "user ID")
	authLoginCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	authLoginCmd.Flags().StringVar(&authServer, "server", "", "backend URL")

	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
