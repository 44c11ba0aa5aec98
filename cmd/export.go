package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"game-showcase/pkg/models"
)

// newExportCmd creates a new command for exporting the gallery index
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "export [format]",
		Short:     "Export the gallery index",
		Long:      `Export the gallery index written by the last scrape in the specified format. Supported formats: json, yaml.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"json", "yaml"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(cmd)
			if err != nil {
				return err
			}

			format := "json"
			if len(args) > 0 {
				format = args[0]
			}

			index, err := svc.LoadIndex()
			if err != nil {
				return err
			}
			return exportIndex(os.Stdout, format, index)
		},
	}
}

// exportIndex writes the index to w in the specified format
func exportIndex(w io.Writer, format string, index []models.CatalogIndexEntry) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(index, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling data: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(index); err != nil {
			return fmt.Errorf("error marshaling data: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format: %s (supported formats: json, yaml)", format)
	}
}
