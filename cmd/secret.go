package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/secret"
	"github.com/padhai-cli/padhai/style"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(secretCmd)
}

// secretCmd manages the catalog connection string kept in the system keyring.
var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the catalog connection string stored in the system keyring",
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
}

var secretSetCmd = &cobra.Command{
	Use:   "set [dsn]",
	Short: "Store the catalog connection string",
	Long:  `Store the catalog connection string. It is asked for when not given, so it stays out of the shell history.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var dsn string
		if len(args) == 1 {
			dsn = args[0]
		} else {
			prompt := &survey.Password{
				Message: "Catalog connection string:",
			}
			handleErr(survey.AskOne(prompt, &dsn, survey.WithValidator(survey.Required)))
		}

		handleErr(secret.SetDSN(dsn))
		fmt.Printf("%s stored catalog connection string\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

func init() {
	secretCmd.AddCommand(secretDeleteCmd)
}

var secretDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Remove the stored catalog connection string",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(secret.DeleteDSN())
		fmt.Printf("%s deleted catalog connection string\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}
