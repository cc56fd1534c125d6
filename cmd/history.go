package cmd

import (
	"fmt"
	"os"

	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/history"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().BoolP("clear", "C", false, "Forget all watch progress")
	historyCmd.Flags().StringP("remove", "r", "", "Forget the progress of one lecture")
	historyCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	historyCmd.MarkFlagsMutuallyExclusive("clear", "remove", "json")
	historyCmd.SetOut(os.Stdout)
}

// historyCmd shows how far each lecture was watched.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the watch history",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("clear")) {
			handleErr(history.Clear())
			fmt.Printf("%s watch history cleared\n", style.Fg(color.Green)(icon.Get(icon.Success)))
			return
		}

		if id := lo.Must(cmd.Flags().GetString("remove")); id != "" {
			handleErr(history.Remove(id))
			fmt.Printf("%s forgot %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), style.Faint(id))
			return
		}

		entries, err := history.List()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(encodeJSON(cmd.OutOrStdout(), entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("Nothing watched yet"))
			return
		}

		for _, e := range entries {
			progress := fmt.Sprintf("%.0f%%", e.WatchedPercentage)
			if e.Completed() {
				progress = style.Fg(color.Green)(icon.Get(icon.Mark) + " watched")
			}

			cmd.Printf("%s %s\n", style.Bold(e.Title), progress)
			cmd.Println(style.Faint(fmt.Sprintf("  %s • %s • %s", e.BatchName, e.Subject, e.UpdatedAt.Format("2 Jan 15:04"))))
		}
	},
}
