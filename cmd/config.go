package cmd

import (
	"errors"
	"fmt"
	"os"

	levenshtein "github.com/ka-weihe/fast-levenshtein"
	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/config"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

// lookupField returns the registered field for k or suggests the closest key.
func lookupField(k string) config.Field {
	if field, ok := config.Default[k]; ok {
		return field
	}

	closest := lo.MinBy(lo.Keys(config.Default), func(a, b string) bool {
		return levenshtein.Distance(k, a) < levenshtein.Distance(k, b)
	})
	handleErr(fmt.Errorf(
		"unknown key %s, did you mean %s?",
		style.Fg(color.Red)(k),
		style.Fg(color.Yellow)(closest),
	))

	return config.Field{}
}

func sortedKeys() []string {
	keys := lo.Keys(config.Default)
	slices.Sort(keys)
	return keys
}

func completionConfigKeys(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return sortedKeys(), cobra.ShellCompDirectiveNoFileComp
}

func printSuccess(format string, args ...any) {
	fmt.Printf("%s %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), fmt.Sprintf(format, args...))
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// configCmd groups the configuration subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application configuration settings and defaults",
}

func init() {
	configCmd.AddCommand(configInfoCmd)

	configInfoCmd.Flags().StringSliceP("key", "k", nil, "Only describe these keys")
	configInfoCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	lo.Must0(configInfoCmd.RegisterFlagCompletionFunc("key", completionConfigKeys))
	configInfoCmd.SetOut(os.Stdout)
}

// configInfoCmd describes configuration fields with their current values.
var configInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe configuration fields and their current values",
	Run: func(cmd *cobra.Command, args []string) {
		keys := lo.Must(cmd.Flags().GetStringSlice("key"))
		if len(keys) == 0 {
			keys = sortedKeys()
		}

		fields := lo.Map(keys, func(k string, _ int) *config.Field {
			field := lookupField(k)
			return &field
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(encodeJSON(cmd.OutOrStdout(), fields))
			return
		}

		for i, field := range fields {
			if i > 0 {
				cmd.Println()
			}
			cmd.Println(field.Pretty())
		}
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
}

// configSetCmd changes a configuration value and saves it.
var configSetCmd = &cobra.Command{
	Use:     "set [key] [value...]",
	Short:   "Change a configuration value",
	Example: "  padhai config set player.default iina\n  padhai config set live.refresh_debounce 1s",
	Args:    cobra.MinimumNArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return completionConfigKeys(cmd, args, toComplete)
		}
		values, _ := config.Options(args[0])
		return values, cobra.ShellCompDirectiveNoFileComp
	},
	Run: func(cmd *cobra.Command, args []string) {
		k := lookupField(args[0]).Key

		v, err := config.Parse(k, args[1:])
		handleErr(err)
		handleErr(config.Set(k, v))
		handleErr(config.Write())

		printSuccess("set %s to %s", style.Fg(color.Purple)(k), style.Fg(color.Yellow)(fmt.Sprint(v)))
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
}

// configGetCmd prints the effective value of a key.
var configGetCmd = &cobra.Command{
	Use:               "get [key]",
	Short:             "Print the effective value of a configuration key",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completionConfigKeys,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(viper.Get(lookupField(args[0]).Key))
	},
}

func init() {
	configCmd.AddCommand(configWriteCmd)
	configWriteCmd.Flags().BoolP("force", "f", false, "Overwrite the existing config file")
}

// configWriteCmd writes the effective configuration to the config file.
var configWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write the effective configuration to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := config.Path()

		if lo.Must(cmd.Flags().GetBool("force")) {
			err := filesystem.API().Remove(path)
			if !errors.Is(err, os.ErrNotExist) {
				handleErr(err)
			}
		}

		handleErr(viper.SafeWriteConfigAs(path))
		printSuccess("wrote config to %s", path)
	},
}

func init() {
	configCmd.AddCommand(configDeleteCmd)
}

// configDeleteCmd removes the config file, leaving defaults and env in effect.
var configDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Delete the config file",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(filesystem.API().Remove(config.Path()))
		printSuccess("deleted config")
	},
}

func init() {
	configCmd.AddCommand(configResetCmd)

	configResetCmd.Flags().BoolP("all", "a", false, "Reset every key")
}

// configResetCmd puts keys back to their defaults.
var configResetCmd = &cobra.Command{
	Use:               "reset [key...]",
	Short:             "Reset configuration keys to their defaults",
	ValidArgsFunction: completionConfigKeys,
	PreRun: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && !lo.Must(cmd.Flags().GetBool("all")) {
			handleErr(errors.New("pass the keys to reset or --all"))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		keys := args
		if lo.Must(cmd.Flags().GetBool("all")) {
			keys = sortedKeys()
		}

		for _, k := range keys {
			field := lookupField(k)
			viper.Set(field.Key, field.Value)
		}
		handleErr(config.Write())

		if len(keys) == len(config.Default) {
			printSuccess("reset all config values")
			return
		}

		for _, k := range keys {
			printSuccess("reset %s to %s", style.Fg(color.Purple)(k), style.Fg(color.Yellow)(fmt.Sprint(config.Default[k].Value)))
		}
	},
}
