package cmd

import (
	"encoding/json"
	"io"
	"os"
	"reflect"
	"text/template"

	"github.com/invopop/jsonschema"
	"github.com/padhai-cli/padhai/constant"
	"github.com/padhai-cli/padhai/filesystem"
	"github.com/padhai-cli/padhai/key"
	"github.com/padhai-cli/padhai/media"
	"github.com/padhai-cli/padhai/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().BoolP("json", "j", false, "Format the output as JSON")
	classifyCmd.Flags().Bool("schema", false, "Print the JSON schema of the output and exit")
	classifyCmd.Flags().StringP("output", "o", "", "Write the output to a file")
	classifyCmd.Flags().String("origin", "", "Origin passed to YouTube embeds")
	lo.Must0(viper.BindPFlag(key.PlayerOrigin, classifyCmd.Flags().Lookup("origin")))
}

// classifiedReference is a reference with its human readable kind.
type classifiedReference struct {
	media.Reference
	Label string `json:"label"`
}

var referenceTemplate = lo.Must(template.New("reference").Funcs(template.FuncMap{
	"bold":  style.Bold,
	"faint": style.Faint,
}).Parse(constant.ReferenceTemplate))

// classifyCmd shows how a lecture URL would be played.
var classifyCmd = &cobra.Command{
	Use:   "classify [url...]",
	Short: "Show how lecture video URLs would be played",
	Long: `Classify lecture video URLs without opening them.

Kinds:
  youtube - embedded YouTube player
  vimeo   - embedded Vimeo player
  hls     - HLS stream played natively or through the local relay
  direct  - video file played natively
  custom  - any other link, embedded as is`,
	Example: "  padhai classify https://youtu.be/dQw4w9WgXcQ --json",
	Args: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("schema")) {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		var writer io.Writer = os.Stdout
		if output := lo.Must(cmd.Flags().GetString("output")); output != "" {
			file, err := filesystem.API().Create(output)
			handleErr(err)
			defer file.Close()
			writer = file
		}

		if lo.Must(cmd.Flags().GetBool("schema")) {
			reflector := new(jsonschema.Reflector)
			reflector.Anonymous = true
			reflector.Namer = func(t reflect.Type) string {
				return t.Name()
			}

			handleErr(json.NewEncoder(writer).Encode(reflector.Reflect([]classifiedReference{})))
			return
		}

		resolver := media.NewResolver(viper.GetString(key.PlayerOrigin))
		refs := lo.Map(args, func(url string, _ int) classifiedReference {
			ref := resolver.Classify(url)
			return classifiedReference{Reference: ref, Label: ref.Kind.Label()}
		})

		if lo.Must(cmd.Flags().GetBool("json")) {
			encoder := json.NewEncoder(writer)
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(refs))
			return
		}

		for i, ref := range refs {
			if i > 0 {
				_, _ = io.WriteString(writer, "\n")
			}
			handleErr(referenceTemplate.Execute(writer, ref))
		}
	},
}
