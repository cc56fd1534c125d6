package cmd

import (
	"fmt"
	"os"

	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/internal/stage"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/player"
	"github.com/padhai-cli/padhai/style"
	"github.com/padhai-cli/padhai/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("title", "t", "", "Title shown by the player")
	playCmd.Flags().Float64P("start", "s", 0, "Start position in seconds")
	playCmd.Flags().StringP("player", "p", "", "Player to use for native videos")
	lo.Must0(playCmd.RegisterFlagCompletionFunc("player", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return player.Names(), cobra.ShellCompDirectiveNoFileComp
	}))
	lo.Must0(viper.BindPFlag(key.Player, playCmd.Flags().Lookup("player")))
}

// playCmd plays a single URL outside of any batch.
var playCmd = &cobra.Command{
	Use:     "play [url]",
	Short:   "Play a video URL",
	Long:    `Play a single video URL the same way a lecture would be played. Embedded videos open in the browser.`,
	Example: "  padhai play https://cdn.example.com/lecture.m3u8 --title \"Organic Chemistry\"",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := args[0]
		title := lo.Must(cmd.Flags().GetString("title"))
		if title == "" {
			title = url
		}

		st, err := stage.New(os.Stdout)
		handleErr(err)
		defer func() {
			if err := st.Close(); err != nil {
				log.Warn(err)
			}
		}()

		ref := st.Resolve(url)
		if !ref.Kind.Iframe() && !ref.Empty {
			CheckDependencies()
		}

		session, err := st.Session(nil, nil)
		handleErr(err)
		defer util.Ignore(session.Unmount)

		snapshots, err := stage.Snapshots(session)
		handleErr(err)

		handleErr(session.Mount(ref, title))
		if ref.Kind.Iframe() || ref.Empty {
			return
		}

		erase := util.PrintErasable(fmt.Sprintf("%s Opening %s...", icon.Get(icon.Progress), title))
		ready := false
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				if snap.LoadErr != nil {
					erase()
					handleErr(snap.LoadErr)
				}
				if snap.Ready && !ready {
					ready = true
					erase()
					fmt.Printf("%s %s %s\n", icon.Get(icon.Video), style.Fg(color.Purple)(snap.Title), style.KindBadge(snap.Ref.Kind.Label()))
					if start := lo.Must(cmd.Flags().GetFloat64("start")); start > 0 {
						if err := st.Resume(cmd.Context(), start); err != nil {
							log.Warn(err)
						}
					}
				}
			case <-st.Player.Wait():
				return
			case <-cmd.Context().Done():
				return
			}
		}
	},
}
