package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/metamodel/internal/cli/ui"
	"github.com/conduit-lang/metamodel/internal/orm/definition"
	"github.com/conduit-lang/metamodel/internal/orm/schema"
	"github.com/conduit-lang/metamodel/internal/utils"
)

// validateParallelism bounds the concurrent model builds
const validateParallelism = 4

type validateResult struct {
	doc   *definition.Document
	model schema.ReadOnlyModel
	err   error
}

// NewValidateCommand creates the validate command
func NewValidateCommand(opts *globalOptions) *cobra.Command {
	var (
		showStats   bool
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "validate <file-or-dir>...",
		Short: "Build and validate model definitions",
		Long: `Build the model of every definition file and run the model validator on it.

Directories are searched recursively for .yml and .yaml files. Each file
is parsed, configured through the convention set and validated. Warnings
follow the diagnostics.warnings configuration: an event configured
as "error" fails validation.`,
		Example: `  # Validate one definition
  metamodel validate models/shop.yml

  # Validate a directory and export build metrics for the textfile collector
  metamodel validate models/ --metrics-file /var/lib/node_exporter/metamodel.prom`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			paths, err := utils.ExpandPaths(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no model definitions found in %s", strings.Join(args, ", "))
			}

			docs, err := definition.LoadFiles(cmd.Context(), paths)
			if err != nil {
				return err
			}

			results := make([]validateResult, len(docs))
			var g errgroup.Group
			g.SetLimit(validateParallelism)
			for i, doc := range docs {
				i, doc := i, doc
				g.Go(func() error {
					model, err := a.model(doc)
					results[i] = validateResult{doc: doc, model: model, err: err}
					return nil
				})
			}
			_ = g.Wait()

			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprint(errOut, ui.ValidationError(r.doc.Source(), r.err, opts.noColor))
					continue
				}
				ui.WriteSuccess(out, fmt.Sprintf("%s: %s (%d entity types)",
					r.doc.Source(), r.doc.Name, len(r.model.EntityTypes())), opts.noColor)
			}

			if showStats {
				stats := a.cache.Stats()
				fmt.Fprintln(out)
				kv := ui.NewKeyValueTable(out, opts.noColor)
				kv.AddRow("Cached models", strconv.Itoa(stats.Entries))
				kv.AddRow("Cache size", strconv.FormatInt(stats.Size, 10))
				kv.AddRow("Cache hits", strconv.FormatInt(stats.Hits, 10))
				kv.AddRow("Cache misses", strconv.FormatInt(stats.Misses, 10))
				kv.AddRow("Evictions", strconv.FormatInt(stats.Evictions, 10))
				kv.Render()
			}

			if metricsFile != "" {
				if err := prometheus.WriteToTextfile(metricsFile, a.registry); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d model definitions are invalid", failed, len(docs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showStats, "stats", false, "Print model cache statistics")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write build metrics in Prometheus text format")

	return cmd
}
