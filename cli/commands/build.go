package commands

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/cli/internal/ui"
	"github.com/queryscope/queryscope/internal/core/query/domain"
	"github.com/queryscope/queryscope/internal/core/schema"
)

var buildConnection string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a query spec interactively",
	Long: `Build a query spec with interactive prompts over the connection's
live schema, preview the compiled SQL, and optionally save it as a
template.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}

		snap, err := eng.Schema(cmd.Context(), buildConnection)
		if err != nil {
			return err
		}
		if len(snap.Tables) == 0 {
			return fmt.Errorf("connection %q has no tables", buildConnection)
		}

		spec, err := promptSpec(snap)
		if err != nil {
			return err
		}

		stmt, err := eng.Compile(*spec, buildConnection)
		if err != nil {
			return err
		}
		ui.PrintDiagnostics(stmt.Diagnostics)
		if stmt.Empty() {
			ui.PrintDim("nothing to run yet")
			return nil
		}
		ui.PrintSQL(stmt)

		var save bool
		if err := survey.AskOne(&survey.Confirm{Message: "Save as template?"}, &save); err != nil {
			return err
		}
		if !save {
			return nil
		}

		var name, description string
		if err := survey.AskOne(&survey.Input{Message: "Template name:"}, &name, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Input{Message: "Description:"}, &description); err != nil {
			return err
		}
		id, err := eng.SaveTemplate(cmd.Context(), name, description, *spec, buildConnection, "")
		if err != nil {
			return err
		}
		ui.PrintSuccess("saved template %d", id)
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVarP(&buildConnection, "connection", "c", "", "connection id")
	_ = buildCmd.MarkFlagRequired("connection")
	rootCmd.AddCommand(buildCmd)
}

// promptSpec walks the user through table, column, ordering and limit
// selection. Filter conditions are left to the JSON spec format; prompting
// for typed values is not worth the ambiguity.
func promptSpec(snap *schema.Snapshot) (*domain.QuerySpec, error) {
	tableNames := make([]string, 0, len(snap.Tables))
	for _, t := range snap.Tables {
		tableNames = append(tableNames, t.Name)
	}

	var chosenTables []string
	if err := survey.AskOne(&survey.MultiSelect{
		Message: "Tables:",
		Options: tableNames,
	}, &chosenTables, survey.WithValidator(survey.Required)); err != nil {
		return nil, err
	}

	spec := &domain.QuerySpec{}
	for _, name := range chosenTables {
		spec.Tables = append(spec.Tables, domain.TableRef{Name: name, Alias: defaultAlias(name, spec.Tables)})
	}

	columnOptions := []string{"*"}
	for _, ref := range spec.Tables {
		table := snap.Table(ref.Name)
		if table == nil {
			continue
		}
		for _, c := range table.Columns {
			columnOptions = append(columnOptions, ref.Alias+"."+c.Name)
		}
	}

	var chosenColumns []string
	if err := survey.AskOne(&survey.MultiSelect{
		Message: "Columns:",
		Options: columnOptions,
		Default: []string{"*"},
	}, &chosenColumns); err != nil {
		return nil, err
	}
	for _, col := range chosenColumns {
		if col == "*" {
			spec.Columns = []domain.ColumnRef{domain.Wildcard}
			break
		}
		parts := strings.SplitN(col, ".", 2)
		spec.Columns = append(spec.Columns, domain.ColumnRef{Table: parts[0], Column: parts[1]})
	}

	var orderBy string
	orderOptions := append([]string{"(none)"}, columnOptions[1:]...)
	if err := survey.AskOne(&survey.Select{
		Message: "Order by:",
		Options: orderOptions,
	}, &orderBy); err != nil {
		return nil, err
	}
	if orderBy != "(none)" {
		var direction string
		if err := survey.AskOne(&survey.Select{
			Message: "Direction:",
			Options: []string{"asc", "desc"},
		}, &direction); err != nil {
			return nil, err
		}
		parts := strings.SplitN(orderBy, ".", 2)
		spec.OrderBy = append(spec.OrderBy, domain.OrderByClause{
			Field:     domain.ColumnRef{Table: parts[0], Column: parts[1]},
			Direction: domain.SortDirection(direction),
		})
	}

	limit := 0
	if err := survey.AskOne(&survey.Input{
		Message: "Row limit:",
		Default: fmt.Sprintf("%d", domain.DefaultRowLimit),
	}, &limit); err != nil {
		return nil, err
	}
	spec.RowLimit = limit

	return spec, nil
}

// defaultAlias derives a short, unique alias from a table name.
func defaultAlias(name string, taken []domain.TableRef) string {
	alias := strings.ToLower(name[:1])
	for {
		collision := false
		for _, t := range taken {
			if t.Alias == alias {
				collision = true
				break
			}
		}
		if !collision {
			return alias
		}
		alias += strings.ToLower(name[:1])
	}
}
