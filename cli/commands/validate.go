package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/cli/internal/ui"
	"github.com/queryscope/queryscope/internal/core/query/domain"
)

var (
	validateConnection string
	validateSpecFile   string
	validateSQL        string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a query spec or a raw SQL statement",
	Long: `Validate a compiled query spec, or an externally supplied SQL string
such as a hand-edited template, against a connection's schema. The
statement is never executed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := getEngine()
		if err != nil {
			return err
		}
		if (validateSpecFile == "") == (validateSQL == "") {
			return errors.New("exactly one of --file or --sql is required")
		}

		var res domain.ValidationResult
		if validateSQL != "" {
			res, err = eng.ValidateSQL(cmd.Context(), validateSQL, validateConnection)
		} else {
			var spec domain.QuerySpec
			spec, err = loadSpecFile(validateSpecFile)
			if err != nil {
				return err
			}
			var stmt domain.CompiledStatement
			stmt, err = eng.Compile(spec, validateConnection)
			if err != nil {
				return err
			}
			ui.PrintDiagnostics(stmt.Diagnostics)
			res, err = eng.Validate(cmd.Context(), stmt, validateConnection)
		}
		if err != nil {
			return err
		}

		ui.PrintValidation(res)
		if !res.IsValid {
			return errors.New("validation failed")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConnection, "connection", "c", "", "connection id")
	validateCmd.Flags().StringVarP(&validateSpecFile, "file", "f", "", "query spec JSON file")
	validateCmd.Flags().StringVar(&validateSQL, "sql", "", "raw SQL statement to validate")
	_ = validateCmd.MarkFlagRequired("connection")
	rootCmd.AddCommand(validateCmd)
}
