package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/internal/orm/diagnostics"
)

type eventRow struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Block    string `json:"block"`
	Level    string `json:"level"`
	Behavior string `json:"behavior"`
	Message  string `json:"message,omitempty"`
}

// NewEventsCommand creates the events command
func NewEventsCommand(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "events [name-or-id]",
		Short: "List diagnostic events",
		Long: `List the diagnostic events raised while building and validating models,
with the behavior the current configuration gives each of them.

Override a behavior in metamodel.yml:

  diagnostics:
    warnings:
      CollectionWithoutComparer: error`,
		Example: `  metamodel events
  metamodel events ModelBuilt
  metamodel events 10600 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown format %q (use table or json)", format)
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), opts.noColor))
				return err
			}
			logger, err := cfg.NewDiagnosticsLogger(nil)
			if err != nil {
				return err
			}

			events := diagnostics.Events()
			if len(args) == 1 {
				def, ok := diagnostics.FindEvent(args[0])
				if !ok {
					names := make([]string, len(events))
					for i, e := range events {
						names[i] = e.Name
					}
					fmt.Fprint(cmd.ErrOrStderr(), ui.UnknownEventError(args[0], ui.FindSimilar(args[0], names), opts.noColor))
					return fmt.Errorf("unknown event %q", args[0])
				}
				events = []diagnostics.EventDefinition{def}
			}

			rows := make([]eventRow, len(events))
			for i, def := range events {
				rows[i] = eventRow{
					ID:       def.ID,
					Name:     def.Name,
					Block:    diagnostics.Block(def.ID),
					Level:    def.Level.String(),
					Behavior: logger.Behavior(def).String(),
				}
				if len(args) == 1 {
					rows[i].Message = def.Format
				}
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(args) == 1 {
				row := rows[0]
				kv := ui.NewKeyValueTable(out, opts.noColor)
				kv.AddRow("ID", strconv.Itoa(row.ID))
				kv.AddRow("Name", row.Name)
				kv.AddRow("Block", row.Block)
				kv.AddRow("Level", row.Level)
				kv.AddRow("Behavior", row.Behavior)
				kv.AddRow("Message", row.Message)
				kv.Render()
				return nil
			}

			table := ui.NewTable(out, []string{"ID", "NAME", "BLOCK", "LEVEL", "BEHAVIOR"}, &ui.TableOptions{NoColor: opts.noColor})
			for _, row := range rows {
				table.AddRow(strconv.Itoa(row.ID), row.Name, row.Block, row.Level, row.Behavior)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}
