package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/cli/internal/ui"
	"github.com/queryscope/queryscope/internal/core/schema"
)

var schemaRefresh bool

var schemaCmd = &cobra.Command{
	Use:   "schema <connection>",
	Short: "Show the schema snapshot for a connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}
		connectionID := args[0]

		spinner, _ := ui.Spinner("inspecting schema")
		var snap *schema.Snapshot
		if schemaRefresh {
			snap, err = eng.RefreshSchema(cmd.Context(), connectionID)
		} else {
			snap, err = eng.Schema(cmd.Context(), connectionID)
		}
		if spinner != nil {
			_ = spinner.Stop()
		}
		if err != nil {
			return err
		}

		data := pterm.TableData{{"TABLE", "COLUMN", "TYPE", "NULLABLE", "~ROWS"}}
		for _, t := range snap.Tables {
			rowCount := ""
			if t.RowCount != nil {
				rowCount = strconv.FormatInt(*t.RowCount, 10)
			}
			for i, c := range t.Columns {
				name, rows := "", ""
				if i == 0 {
					name, rows = t.Name, rowCount
				}
				nullable := ""
				if c.Nullable {
					nullable = "yes"
				}
				data = append(data, []string{name, c.Name, c.Type, nullable, rows})
			}
		}
		for _, v := range snap.Views {
			for i, c := range v.Columns {
				name := ""
				if i == 0 {
					name = v.Name + " (view)"
				}
				data = append(data, []string{name, c.Name, c.Type, "", ""})
			}
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaRefresh, "refresh", false, "re-inspect instead of using the cached snapshot")
	rootCmd.AddCommand(schemaCmd)
}
