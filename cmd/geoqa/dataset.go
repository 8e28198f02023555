package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/longregen/geoqa/internal/adapters/id"
	"github.com/longregen/geoqa/internal/adapters/postgres"
	"github.com/longregen/geoqa/internal/dataset"
	"github.com/longregen/geoqa/internal/domain/models"
	"github.com/longregen/geoqa/internal/example"
	"github.com/spf13/cobra"
)

func datasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage stored example datasets",
	}
	cmd.AddCommand(datasetImportCmd(), datasetListCmd(), datasetExportCmd())
	return cmd
}

func datasetImportCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSONL or YAML dataset file into the example store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			examples, err := dataset.Load(args[0], cfg.Eval.InputKeys)
			if err != nil {
				return err
			}
			if len(examples) == 0 {
				return fmt.Errorf("%s has no examples", args[0])
			}

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			idGen := id.New()
			stored := make([]*models.DatasetExample, len(examples))
			for i, ex := range examples {
				stored[i] = models.NewDatasetExample(idGen.GenerateExampleID(), name, ex, models.SourceFile)
			}

			if err := postgres.NewExampleRepository(pool).CreateBatch(ctx, stored); err != nil {
				return fmt.Errorf("failed to import dataset: %w", err)
			}

			logger.Info("dataset imported", "dataset", name, "file", args[0], "examples", len(stored))
			fmt.Printf("Imported %d examples into %s\n", len(stored), name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "dataset name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func datasetListCmd() *cobra.Command {
	var (
		name   string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored examples of a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := postgres.NewExampleRepository(pool)
			total, err := repo.CountByDataset(ctx, name)
			if err != nil {
				return err
			}
			examples, err := repo.ListByDataset(ctx, name, limit, offset)
			if err != nil {
				return err
			}

			if len(examples) == 0 {
				fmt.Printf("No examples in %s\n", name)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tINPUTS\tLABELS\tSOURCE\tCREATED")
			for _, ex := range examples {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					ex.ID,
					example.Object(ex.Example.Inputs().Data),
					example.Object(ex.Example.Labels().Data),
					ex.Source,
					ex.CreatedAt.Format("2006-01-02 15:04"),
				)
			}
			w.Flush()

			fmt.Printf("\nShowing %d of %d examples\n", len(examples), total)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "dataset name")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum examples to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "examples to skip")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func datasetExportCmd() *cobra.Command {
	var (
		name   string
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored dataset as JSONL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := initDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			stored, err := postgres.NewExampleRepository(pool).ListByDataset(ctx, name, limit, 0)
			if err != nil {
				return fmt.Errorf("failed to load dataset %s: %w", name, err)
			}

			examples := make([]example.Example, len(stored))
			for i, ex := range stored {
				examples[i] = ex.Example
			}
			return exportExamples(cmd.OutOrStdout(), output, examples)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "dataset name")
	cmd.Flags().IntVar(&limit, "limit", 1000, "maximum examples to export")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// exportExamples writes examples as JSONL to path, or to stdout when path is empty
func exportExamples(stdout io.Writer, path string, examples []example.Example) error {
	if path == "" {
		return dataset.WriteJSONL(stdout, examples)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := dataset.WriteJSONL(f, examples); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	logger.Info("dataset exported", "file", path, "examples", len(examples))
	return nil
}
