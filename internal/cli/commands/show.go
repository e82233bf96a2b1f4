package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/internal/orm/definition"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
)

// NewShowCommand creates the show command
func NewShowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print the debug view of a model",
		Long: `Build the model of a definition and print its debug view: entity types
by name, their members in declaration order, keys, foreign keys and annotations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			out := cmd.OutOrStdout()
			kv := ui.NewKeyValueTable(out, opts.noColor)
			kv.AddRow("Definition", doc.String())
			kv.AddRow("ID", doc.UID().String())
			kv.AddRow("Digest", doc.Digest())
			kv.Render()
			fmt.Fprintln(out)
			fmt.Fprint(out, schema.DebugView(model))
			return nil
		},
	}
}
