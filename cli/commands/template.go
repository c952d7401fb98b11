package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/cli/internal/ui"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage saved query templates",
}

var (
	templateSaveConnection  string
	templateSaveSpecFile    string
	templateSaveName        string
	templateSaveDescription string
)

var templateSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a query spec as a template",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}
		spec, err := loadSpecFile(templateSaveSpecFile)
		if err != nil {
			return err
		}
		id, err := eng.SaveTemplate(cmd.Context(), templateSaveName, templateSaveDescription,
			spec, templateSaveConnection, "")
		if err != nil {
			return err
		}
		ui.PrintSuccess("saved template %d", id)
		return nil
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}
		templates, err := eng.ListTemplates(cmd.Context())
		if err != nil {
			return err
		}

		data := pterm.TableData{{"ID", "NAME", "CONNECTION", "UPDATED"}}
		for _, t := range templates {
			data = append(data, []string{
				strconv.FormatInt(t.ID, 10),
				t.Name,
				t.ConnectionID,
				t.UpdatedAt.Format("2006-01-02 15:04"),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid template id %q", args[0])
		}
		t, err := eng.GetTemplate(cmd.Context(), id)
		if err != nil {
			return err
		}

		ui.PrintInfo("%s", t.Name)
		if t.Description != "" {
			ui.PrintDim("%s", t.Description)
		}
		ui.PrintDim("connection: %s", t.ConnectionID)
		if t.SQL != "" {
			fmt.Println(t.SQL)
		}
		specJSON, err := json.MarshalIndent(t.Spec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(specJSON))
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid template id %q", args[0])
		}
		if err := eng.DeleteTemplate(cmd.Context(), id); err != nil {
			return err
		}
		ui.PrintSuccess("deleted template %d", id)
		return nil
	},
}

func init() {
	templateSaveCmd.Flags().StringVarP(&templateSaveConnection, "connection", "c", "", "connection id")
	templateSaveCmd.Flags().StringVarP(&templateSaveSpecFile, "file", "f", "", "query spec JSON file")
	templateSaveCmd.Flags().StringVarP(&templateSaveName, "name", "n", "", "template name")
	templateSaveCmd.Flags().StringVarP(&templateSaveDescription, "description", "d", "", "template description")
	_ = templateSaveCmd.MarkFlagRequired("connection")
	_ = templateSaveCmd.MarkFlagRequired("file")
	_ = templateSaveCmd.MarkFlagRequired("name")

	templateCmd.AddCommand(templateSaveCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	rootCmd.AddCommand(templateCmd)
}
