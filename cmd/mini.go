package cmd

import (
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/mini"
	"github.com/padhai-cli/padhai/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(miniCmd)

	miniCmd.Flags().BoolP("continue", "c", false, "Start from the continue watching list")
	miniCmd.Flags().BoolP("vim", "V", false, "Use vim keys to move in menus")
	lo.Must0(viper.BindPFlag(key.MiniVimMode, miniCmd.Flags().Lookup("vim")))
}

// miniCmd launches the prompt based interface.
var miniCmd = &cobra.Command{
	Use:   "mini",
	Short: "Launch the application in a lightweight, prompt based interface",
	Long:  `Browse batches and watch lectures through simple prompts instead of the full screen interface.`,
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		store := openCatalog()
		defer util.Ignore(store.Close)

		options := mini.Options{
			Store:    store,
			UserID:   viper.GetString(key.UserID),
			Continue: lo.Must(cmd.Flags().GetBool("continue")),
		}
		handleErr(mini.Run(cmd.Context(), &options))
	},
}
