package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "List configured connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}

		data := pterm.TableData{{"ID", "NAME", "DIALECT", "READ-ONLY"}}
		for _, c := range eng.Connections() {
			readOnly := "no"
			if c.ReadOnly {
				readOnly = "yes"
			}
			data = append(data, []string{c.ID, c.Name, string(c.Dialect), readOnly})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(connectionsCmd)
}
