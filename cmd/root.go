// Package cmd implements the command-line interface for padhai.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/constant"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/style"
	"github.com/padhai-cli/padhai/tui"
	"github.com/padhai-cli/padhai/util"
	"github.com/padhai-cli/padhai/version"
	"github.com/padhai-cli/padhai/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, squares)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Save watch progress to the local history")
	lo.Must0(viper.BindPFlag(key.HistorySave, rootCmd.PersistentFlags().Lookup("write-history")))

	rootCmd.PersistentFlags().String("user", "", "Student id used for enrollment checks")
	lo.Must0(viper.BindPFlag(key.UserID, rootCmd.PersistentFlags().Lookup("user")))

	rootCmd.Flags().BoolP("continue", "c", false, "Open the continue watching list")
	rootCmd.Flags().BoolP("live", "L", false, "Open the live lecture schedule")
	rootCmd.MarkFlagsMutuallyExclusive("continue", "live")

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})

	// Initialize cleanup of localized temporary files on application startup.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for the padhai application.
var rootCmd = &cobra.Command{
	Use:   constant.Padhai,
	Short: "Browse batches and watch lectures from the terminal",
	Long: constant.AsciiArtLogo + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Browse batches and watch lectures from the terminal"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		CheckDependencies()

		store := openCatalog()
		defer util.Ignore(store.Close)

		options := tui.Options{
			Store:    store,
			UserID:   viper.GetString(key.UserID),
			Continue: lo.Must(cmd.Flags().GetBool("continue")),
			Live:     lo.Must(cmd.Flags().GetBool("live")),
		}
		handleErr(tui.Run(&options))
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Println(err)
		os.Exit(1)
	}
}

// openCatalog connects to the configured catalog or exits.
func openCatalog() *catalog.Store {
	cfg, err := catalog.ConfigFromViper()
	if errors.Is(err, catalog.ErrNoDSN) {
		err = fmt.Errorf("%w, run %q or set %s", err, constant.Padhai+" secret set", key.CatalogDSN)
	}
	handleErr(err)

	store, err := catalog.Open(cfg)
	handleErr(err)

	return store
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
