package commands

import (
	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/cli/internal/ui"
)

var (
	compileConnection string
	compileSpecFile   string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a query spec to SQL",
	Long: `Compile a query spec file into dialect-correct, parameterized SQL
without executing it. Diagnostics are reported for incomplete specs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}

		spec, err := loadSpecFile(compileSpecFile)
		if err != nil {
			return err
		}
		stmt, err := eng.Compile(spec, compileConnection)
		if err != nil {
			return err
		}

		ui.PrintDiagnostics(stmt.Diagnostics)
		if stmt.Empty() {
			ui.PrintDim("nothing to run yet")
			return nil
		}
		ui.PrintSQL(stmt)
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileConnection, "connection", "c", "", "connection id")
	compileCmd.Flags().StringVarP(&compileSpecFile, "file", "f", "", "query spec JSON file")
	_ = compileCmd.MarkFlagRequired("connection")
	_ = compileCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(compileCmd)
}
