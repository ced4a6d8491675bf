package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Abhishek8108/uk-stock-analyzer/internal/settings"
)

var (
	credKey    string
	credSecret string
)

// credentialsCmd manages API keys kept in the encrypted credentials file
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage stored API credentials",
	Long: `Store API keys for the language model, NewsAPI and Alpaca in an encrypted
file. Keys set in the environment or the config file take precedence.

Examples:
  analyzer credentials set newsapi --key abc123
  analyzer credentials set alpaca --key PK... --secret ...
  analyzer credentials list
  analyzer credentials delete llm`,
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set <llm|newsapi|alpaca>",
	Short: "Store a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := settings.ParseServiceName(args[0])
		if err != nil {
			return err
		}
		store, err := openCredentials()
		if err != nil {
			return err
		}
		if err := store.Set(service, settings.Credential{APIKey: credKey, APISecret: credSecret}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s credentials in %s\n", service, store.Path())
		return nil
	},
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials (masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCredentials()
		if err != nil {
			return err
		}
		list := store.List()
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no stored credentials")
			return nil
		}
		for _, c := range list {
			line := fmt.Sprintf("%-8s key=%s", c.Service, c.APIKey)
			if c.APISecret != "" {
				line += " secret=" + c.APISecret
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <llm|newsapi|alpaca>",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := settings.ParseServiceName(args[0])
		if err != nil {
			return err
		}
		store, err := openCredentials()
		if err != nil {
			return err
		}
		return store.Delete(service)
	},
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSetCmd, credentialsListCmd, credentialsDeleteCmd)

	credentialsSetCmd.Flags().StringVar(&credKey, "key", "", "API key")
	credentialsSetCmd.Flags().StringVar(&credSecret, "secret", "", "API secret (alpaca only)")
	_ = credentialsSetCmd.MarkFlagRequired("key")
}
