package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/live"
	"github.com/padhai-cli/padhai/style"
	"github.com/padhai-cli/padhai/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scheduleLayout is accepted by live add --at, in local time.
const scheduleLayout = "2006-01-02 15:04"

const descriptionWidth = 72

func printSchedule(w io.Writer, lectures []live.Lecture, now time.Time) {
	if len(lectures) == 0 {
		_, _ = fmt.Fprintln(w, style.Faint("No live lectures scheduled"))
		return
	}

	for i, l := range lectures {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}

		info := live.Evaluate(l, now)
		var badge string
		switch info.Status {
		case live.Live:
			badge = style.LiveBadge(info.Message)
		case live.Upcoming:
			badge = style.UpcomingBadge(info.Message)
		default:
			badge = style.OfflineBadge(info.Message)
		}

		details := []string{"[" + l.Initials() + "] " + l.Instructor}
		if info.Time != "" {
			details = append(details, info.Time)
		}

		_, _ = fmt.Fprintf(w, "%s %s %s\n", badge, style.Bold(l.Title), style.Faint(l.ID))
		_, _ = fmt.Fprintf(w, "  %s\n", strings.Join(details, " • "))
		if l.Description != "" {
			for _, line := range strings.Split(util.Wrap(l.Description, descriptionWidth), "\n") {
				_, _ = fmt.Fprintf(w, "  %s\n", style.Faint(line))
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().BoolP("watch", "w", false, "Keep running and reprint the schedule when it changes")
	liveCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	liveCmd.MarkFlagsMutuallyExclusive("watch", "json")
	liveCmd.SetOut(os.Stdout)
}

// liveCmd shows the live lecture schedule.
var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Show and manage the live lecture schedule",
	Run: func(cmd *cobra.Command, args []string) {
		store := live.NewStore(live.DefaultPath())

		lectures, err := store.Load()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(encodeJSON(cmd.OutOrStdout(), lectures))
			return
		}

		printSchedule(cmd.OutOrStdout(), lectures, time.Now())

		if !lo.Must(cmd.Flags().GetBool("watch")) {
			return
		}

		ctx := cmd.Context()
		err = live.Watch(ctx, store, viper.GetDuration(key.LiveRefreshDebounce), func(lectures []live.Lecture, err error) {
			util.ClearScreen()
			if err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), err)
				return
			}
			printSchedule(cmd.OutOrStdout(), lectures, time.Now())
		})
		handleErr(err)

		<-ctx.Done()
	},
}

func init() {
	liveCmd.AddCommand(liveAddCmd)

	liveAddCmd.Flags().StringP("title", "t", "", "Lecture title")
	liveAddCmd.Flags().StringP("url", "U", "", "Video or stream URL")
	liveAddCmd.Flags().StringP("instructor", "i", "", "Instructor name")
	liveAddCmd.Flags().StringP("description", "d", "", "Short description")
	liveAddCmd.Flags().StringP("at", "a", "", "Scheduled start, \""+scheduleLayout+"\" in local time")
	liveAddCmd.Flags().BoolP("now", "n", false, "Mark the lecture as live right away")

	lo.Must0(liveAddCmd.MarkFlagRequired("title"))
	lo.Must0(liveAddCmd.MarkFlagRequired("url"))
	lo.Must0(liveAddCmd.MarkFlagRequired("instructor"))
}

// liveAddCmd schedules a live lecture.
var liveAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Schedule a live lecture",
	Example: `  padhai live add -t "Doubt session" -U https://cdn.example.com/live.m3u8 -i "R. Sharma" -a "2026-10-20 18:30"`,
	Run: func(cmd *cobra.Command, args []string) {
		lecture := live.Lecture{
			Title:       lo.Must(cmd.Flags().GetString("title")),
			VideoURL:    lo.Must(cmd.Flags().GetString("url")),
			Instructor:  lo.Must(cmd.Flags().GetString("instructor")),
			Description: lo.Must(cmd.Flags().GetString("description")),
			IsLive:      lo.Must(cmd.Flags().GetBool("now")),
		}

		if at := lo.Must(cmd.Flags().GetString("at")); at != "" {
			scheduled, err := time.ParseInLocation(scheduleLayout, at, time.Local)
			if err != nil {
				handleErr(fmt.Errorf("invalid --at %q, expected %q", at, scheduleLayout))
			}
			lecture.ScheduledTime = &scheduled
		}

		lecture, err := live.NewStore(live.DefaultPath()).Add(lecture)
		handleErr(err)

		fmt.Printf(
			"%s scheduled %s %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(lecture.Title),
			style.Faint(lecture.ID),
		)
	},
}

func init() {
	liveCmd.AddCommand(liveRemoveCmd)
}

// liveRemoveCmd deletes a live lecture from the schedule.
var liveRemoveCmd = &cobra.Command{
	Use:     "remove [id]",
	Short:   "Remove a live lecture from the schedule",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		lectures, err := live.NewStore(live.DefaultPath()).Load()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return lo.Map(lectures, func(l live.Lecture, _ int) string {
			return l.ID + "\t" + l.Title
		}), cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(live.NewStore(live.DefaultPath()).Remove(args[0]))

		fmt.Printf(
			"%s removed %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Faint(args[0]),
		)
	},
}
