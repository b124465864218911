package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/secrets"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage secrets stored in the OS keyring",
}

var secretsSetCmd = &cobra.Command{
	Use:       "set <" + strings.Join(secrets.Accounts(), "|") + ">",
	Short:     "Store a secret in the OS keyring",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: secrets.Accounts(),
	RunE: func(_ *cobra.Command, args []string) error {
		input := promptui.Prompt{
			Label: args[0],
			Mask:  '*',
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("value is empty")
				}
				return nil
			},
		}
		value, err := input.Run()
		if err != nil {
			return err
		}
		if err := secrets.Store(args[0], value); err != nil {
			return fmt.Errorf("storing %s: %w", args[0], err)
		}
		fmt.Printf("%s stored in the keyring under %q\n", args[0], secrets.Service)
		return nil
	},
}

var secretsDeleteCmd = &cobra.Command{
	Use:       "delete <" + strings.Join(secrets.Accounts(), "|") + ">",
	Short:     "Remove a secret from the OS keyring",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: secrets.Accounts(),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := secrets.Delete(args[0]); err != nil {
			return fmt.Errorf("deleting %s: %w", args[0], err)
		}
		fmt.Printf("%s removed from the keyring\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsSetCmd, secretsDeleteCmd)
}
