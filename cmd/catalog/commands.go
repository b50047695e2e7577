package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/usecase"
)

const defaultReembedBatch = 100

func newRootCmd(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "catalog",
		Short:        "Manage the academic source catalog",
		SilenceUsage: true,
	}
	root.AddCommand(newAddCmd(open), newReembedCmd(open), newSearchCmd(open))
	return root
}

func newAddCmd(open openFunc) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Embed and store the sources listed in a YAML file",
		Long: `Add reads a YAML list of sources (title, authors, publication_year,
abstract, full_text, source_type), embeds each one as a document and stores it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sources, err := readSourcesFile(file)
			if err != nil {
				return err
			}
			svc, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.close()

			for i, in := range sources {
				stored, err := svc.catalog.Add(cmd.Context(), in)
				if err != nil {
					return fmt.Errorf("source #%d (%q): %w", i+1, in.Title, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %d\t%s\n", stored.ID, stored.Title)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d source(s) added\n", len(sources))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML file with the sources to add")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newReembedCmd(open openFunc) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Generate embeddings for sources that have none",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batch <= 0 {
				return fmt.Errorf("--batch must be positive, got %d", batch)
			}
			svc, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.close()

			count, err := svc.catalog.Reembed(cmd.Context(), batch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d source(s) re-embedded\n", count)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", defaultReembedBatch, "rows loaded per batch")
	return cmd
}

func newSearchCmd(open openFunc) *cobra.Command {
	var (
		query string
		topK  int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Print the sources most similar to a query as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.close()

			limit := topK
			if !cmd.Flags().Changed("top-k") {
				limit = svc.topK
				if limit <= 0 {
					limit = usecase.DefaultSourcesTopK
				}
			}
			if svc.maxTopK > 0 && limit > svc.maxTopK {
				return fmt.Errorf("--top-k must not exceed %d", svc.maxTopK)
			}

			matches, err := svc.search.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			if matches == nil {
				matches = []domain.SourceMatch{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "free-text query")
	cmd.Flags().IntVar(&topK, "top-k", usecase.DefaultSourcesTopK, "maximum number of matches")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func readSourcesFile(path string) ([]domain.NewSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var sources []domain.NewSource
	if err := yaml.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(sources) == 0 {
		return nil, errors.New("sources file contains no entries")
	}
	return sources, nil
}
