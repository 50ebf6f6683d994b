package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trinnux/gallery/internal/model"
	"github.com/trinnux/gallery/internal/repository"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func ListCmd(opts *DBOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print active images in admin display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := opts.open()
			if err != nil {
				return err
			}
			defer database.Close()

			images, err := repository.NewImageRepository(database).ListForAdmin(cmd.Context())
			if err != nil {
				return err
			}

			return printImages(cmd.OutOrStdout(), images, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func printImages(out io.Writer, images []*model.Image, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(images)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(images)
	case "table":
		t := table.New().
			Border(lipgloss.NormalBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers("POSITION", "ID", "FEATURED", "CATEGORY", "FILENAME", "CAPTION")
		for _, img := range images {
			t.Row(
				strconv.Itoa(img.Position),
				strconv.FormatInt(img.ID, 10),
				strconv.FormatBool(img.Featured),
				img.Category,
				img.Filename,
				img.Caption,
			)
		}
		_, err := fmt.Fprintln(out, t.String())
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
