package mini

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/padhai-cli/padhai/icon"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/style"
	"github.com/padhai-cli/padhai/util"
	"github.com/spf13/viper"
)

var pageSize = 10

// bind is a menu entry that is not an item, like "back".
type bind struct {
	name string
}

func (b *bind) eq(other *bind) bool {
	return b == other
}

func (b *bind) String() string {
	return "[" + b.name + "]"
}

var (
	quit       = &bind{"quit"}
	back       = &bind{"back"}
	search     = &bind{"search again"}
	enroll     = &bind{"enroll"}
	toggle     = &bind{"pause/resume"}
	mute       = &bind{"mute/unmute"}
	fullscreen = &bind{"fullscreen"}
	retry      = &bind{"retry"}
	next       = &bind{"next lecture"}
	prev       = &bind{"previous lecture"}
	refresh    = &bind{"refresh"}
)

// menu asks to pick one of items or binds. quit is always offered last.
// Exactly one of the returned bind and item is meaningful.
func menu[T any](items []T, label func(T) string, binds ...*bind) (*bind, T, error) {
	var zero T

	binds = append(binds, quit)
	options := make([]string, 0, len(items)+len(binds))
	for i, item := range items {
		options = append(options, optionLabel(i, label(item)))
	}
	for _, b := range binds {
		options = append(options, b.String())
	}

	prompt := &survey.Select{
		Message:  "Choose",
		Options:  options,
		PageSize: pageSize,
		VimMode:  viper.GetBool(key.MiniVimMode),
	}

	var index int
	if err := survey.AskOne(prompt, &index); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return quit, zero, nil
		}
		return nil, zero, err
	}

	if index < len(items) {
		return nil, items[index], nil
	}

	return binds[index-len(items)], zero, nil
}

// optionLabel numbers an option so equal titles stay distinguishable.
func optionLabel(index int, label string) string {
	return style.Truncate(truncateAt)(fmt.Sprintf("%d. %s", index+1, label))
}

// getInput reads a line until valid accepts it. Ctrl+C quits.
// suggest, when set, completes the line on tab.
func getInput(message string, valid func(string) bool, suggest func(string) []string) (string, error) {
	prompt := &survey.Input{Message: message, Suggest: suggest}

	var response string
	err := survey.AskOne(prompt, &response, survey.WithValidator(func(ans any) error {
		if s, ok := ans.(string); ok && valid(strings.TrimSpace(s)) {
			return nil
		}
		return errors.New("invalid input")
	}))

	if errors.Is(err, terminal.InterruptErr) {
		return "", errQuit
	}

	return strings.TrimSpace(response), err
}

func confirm(message string) (bool, error) {
	prompt := &survey.Confirm{Message: message}

	var response bool
	if err := survey.AskOne(prompt, &response); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, nil
		}
		return false, err
	}

	return response, nil
}

func title(text string) {
	fmt.Println(style.Title(text))
}

func fail(text string) {
	fmt.Println(style.Error(icon.Get(icon.Fail) + " " + text))
}

func progress(text string) (erase func()) {
	return util.PrintErasable(style.Faint(text))
}
