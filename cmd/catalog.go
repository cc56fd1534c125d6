package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/padhai-cli/padhai/catalog"
	"github.com/padhai-cli/padhai/color"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/log"
	"github.com/padhai-cli/padhai/open"
	"github.com/padhai-cli/padhai/query"
	"github.com/padhai-cli/padhai/style"
	"github.com/padhai-cli/padhai/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// findBatch looks a batch up by id, then by the closest active batch name.
func findBatch(ctx context.Context, store *catalog.Store, q string) (catalog.Batch, error) {
	batch, err := store.Batch(ctx, q)
	if !errors.Is(err, catalog.ErrNotFound) {
		return batch, err
	}

	batches, err := store.ActiveBatches(ctx)
	if err != nil {
		return catalog.Batch{}, err
	}

	found := catalog.Search(batches, q)
	if len(found) == 0 {
		return catalog.Batch{}, fmt.Errorf("batch %q: %w", q, catalog.ErrNotFound)
	}

	return found[0], nil
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printBatch(w io.Writer, b catalog.Batch) {
	details := []string{style.Fg(style.PriceColor)(b.PriceLabel())}
	if t := lo.FromPtr(b.BatchType); t != "" {
		details = append([]string{t}, details...)
	}
	if weeks := lo.FromPtr(b.DurationWeeks); weeks > 0 {
		details = append(details, util.Quantify(weeks, "week", "weeks"))
	}
	if b.StartDate != nil {
		details = append(details, "starts "+b.StartDate.Format("2 Jan 2006"))
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", style.Bold(b.Name), style.Faint(b.ID))
	_, _ = fmt.Fprintf(w, "  %s\n", strings.Join(details, " • "))
}

func init() {
	rootCmd.AddCommand(batchesCmd)

	batchesCmd.Flags().StringP("search", "s", "", "Only show batches matching the query")
	lo.Must0(batchesCmd.RegisterFlagCompletionFunc("search", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return query.SuggestMany(toComplete), cobra.ShellCompDirectiveNoFileComp
	}))
	batchesCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	batchesCmd.Flags().BoolP("enrolled", "e", false, "Only show batches you are enrolled in")
	batchesCmd.SetOut(os.Stdout)
}

// batchesCmd lists the batches open for enrollment.
var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List active batches",
	Run: func(cmd *cobra.Command, args []string) {
		store := openCatalog()
		defer util.Ignore(store.Close)

		batches, err := store.ActiveBatches(cmd.Context())
		handleErr(err)

		q := lo.Must(cmd.Flags().GetString("search"))
		batches = catalog.Search(batches, q)
		if len(batches) > 0 {
			if err := query.Remember(q, 1); err != nil {
				log.Warn(err)
			}
		}

		if lo.Must(cmd.Flags().GetBool("enrolled")) {
			enrollments, err := store.Enrollments(cmd.Context(), viper.GetString(key.UserID))
			handleErr(err)

			ids := lo.SliceToMap(enrollments, func(e catalog.Enrollment) (string, struct{}) {
				return e.BatchID, struct{}{}
			})
			batches = lo.Filter(batches, func(b catalog.Batch, _ int) bool {
				_, ok := ids[b.ID]
				return ok
			})
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(encodeJSON(cmd.OutOrStdout(), batches))
			return
		}

		if len(batches) == 0 {
			cmd.Println(style.Faint("No batches found"))
			return
		}

		for i, b := range batches {
			if i > 0 {
				cmd.Println()
			}
			printBatch(cmd.OutOrStdout(), b)
		}
	},
}

func init() {
	rootCmd.AddCommand(subjectsCmd)

	subjectsCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	subjectsCmd.SetOut(os.Stdout)
}

// subjectsCmd lists the subjects of a batch.
var subjectsCmd = &cobra.Command{
	Use:   "subjects [batch]",
	Short: "List the subjects of a batch",
	Long:  `List the subjects of a batch. The batch is given by id or by name.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openCatalog()
		defer util.Ignore(store.Close)

		batch, err := findBatch(cmd.Context(), store, args[0])
		handleErr(err)

		subjects, err := store.Subjects(cmd.Context(), batch.ID)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(encodeJSON(cmd.OutOrStdout(), subjects))
			return
		}

		cmd.Println(style.Title(batch.Name))
		for _, s := range subjects {
			cmd.Printf("%s %s\n", s.Name, style.Faint(s.ID))
		}
	},
}

func init() {
	rootCmd.AddCommand(lecturesCmd)

	lecturesCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	lecturesCmd.Flags().BoolP("urls", "U", false, "Show video URLs")
	lo.Must0(viper.BindPFlag(key.TUIShowURLs, lecturesCmd.Flags().Lookup("urls")))
	lecturesCmd.SetOut(os.Stdout)
}

// lecturesCmd lists the lectures of a subject.
var lecturesCmd = &cobra.Command{
	Use:   "lectures [subject id]",
	Short: "List the lectures of a subject",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openCatalog()
		defer util.Ignore(store.Close)

		subject, err := store.Subject(cmd.Context(), args[0])
		handleErr(err)

		lectures, err := store.Lectures(cmd.Context(), subject.ID)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(encodeJSON(cmd.OutOrStdout(), lectures))
			return
		}

		enrolled, err := store.Enrolled(cmd.Context(), viper.GetString(key.UserID), subject.BatchID)
		handleErr(err)

		cmd.Println(style.Title(subject.Name))
		for _, l := range lectures {
			name := l.Title
			if catalog.CanWatch(l, enrolled) != nil {
				name = icon.Get(icon.Lock) + " " + name
			}
			if l.Free() {
				name += " " + style.FreeBadge("Free")
			}

			details := []string{l.Duration().String()}
			switch {
			case l.URL() == "":
				details = append(details, "no video")
			case viper.GetBool(key.TUIShowURLs):
				details = append(details, l.URL())
			}

			cmd.Println(name)
			cmd.Println(style.Faint("  " + strings.Join(details, " • ")))
		}
	},
}

func init() {
	rootCmd.AddCommand(booksCmd)

	booksCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	booksCmd.Flags().StringP("open", "o", "", "Open the book with this title or id")
	booksCmd.SetOut(os.Stdout)
}

// booksCmd lists the PDFs attached to a batch.
var booksCmd = &cobra.Command{
	Use:   "books [batch]",
	Short: "List or open the books of a batch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openCatalog()
		defer util.Ignore(store.Close)

		batch, err := findBatch(cmd.Context(), store, args[0])
		handleErr(err)

		books, err := store.Books(cmd.Context(), batch.ID)
		handleErr(err)

		if name := lo.Must(cmd.Flags().GetString("open")); name != "" {
			book, ok := lo.Find(books, func(b catalog.Book) bool {
				return b.ID == name || strings.EqualFold(b.Title, name)
			})
			if !ok {
				handleErr(fmt.Errorf("book %q: %w", name, catalog.ErrNotFound))
			}
			if lo.FromPtr(book.PDFURL) == "" {
				handleErr(fmt.Errorf("%s has no pdf", book.Title))
			}

			handleErr(open.Start(*book.PDFURL))
			return
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(encodeJSON(cmd.OutOrStdout(), books))
			return
		}

		cmd.Println(style.Title(batch.Name))
		for _, b := range books {
			title := icon.Get(icon.Book) + " " + b.Title
			if lo.FromPtr(b.PDFURL) == "" {
				title += style.Faint(" (no pdf)")
			}
			cmd.Println(title)
			if d := lo.FromPtr(b.Description); d != "" {
				cmd.Println(style.Faint("  " + d))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

// enrollCmd enrolls the configured student in a batch.
var enrollCmd = &cobra.Command{
	Use:   "enroll [batch]",
	Short: "Enroll in a batch",
	Args:  cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		if viper.GetString(key.UserID) == "" {
			handleErr(fmt.Errorf("no student id, set %s or pass --user", key.UserID))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		store := openCatalog()
		defer util.Ignore(store.Close)

		batch, err := findBatch(cmd.Context(), store, args[0])
		handleErr(err)

		_, err = store.Enroll(cmd.Context(), viper.GetString(key.UserID), batch.ID)
		if errors.Is(err, catalog.ErrAlreadyEnrolled) {
			fmt.Printf("%s already enrolled in %s\n", style.Fg(color.Yellow)(icon.Get(icon.Mark)), style.Fg(color.Purple)(batch.Name))
			return
		}
		handleErr(err)

		fmt.Printf(
			"%s enrolled in %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(batch.Name),
		)
	},
}
