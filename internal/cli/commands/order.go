package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/internal/orm/definition"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// NewOrderCommand creates the order command
func NewOrderCommand(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "order <file>",
		Short: "List entity types in dependency order",
		Long: `Build the model of a definition and list its entity types so that every
principal comes before the entity types that reference it.`,
		Example: `  metamodel order models/shop.yml
  metamodel order models/shop.yml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q (use table or json)", format)
			}

			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			doc, err := definition.LoadFile(args[0])
			if err != nil {
				return err
			}
			model, err := a.model(doc)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ValidationError(doc.Source(), err, opts.noColor))
				return fmt.Errorf("model definition %s is invalid", doc.Source())
			}

			report, err := schema.AnalyzeDependencies(model)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			table := ui.NewTable(out, []string{"#", "ENTITY", "DEPENDS ON"}, &ui.TableOptions{NoColor: opts.noColor})
			for i, name := range report.Order {
				deps := strings.Join(report.Dependencies[name], ", ")
				if deps == "" {
					deps = "-"
				}
				table.AddRow(strconv.Itoa(i+1), name, deps)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}
