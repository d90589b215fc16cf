package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/benchfang/pkg/persist"
)

// ErrInvalidDocument is returned when a run export fails schema validation.
var ErrInvalidDocument = errors.New("document does not match the run schema")

// ValidateCommand holds configuration for the validate command.
type ValidateCommand struct {
	schemaPath string
	colorize   bool
	nocolor    bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	vc := &ValidateCommand{}

	cmd := &cobra.Command{
		Use:   "validate <run.json|->",
		Short: "Validate a run export against the embedded schema",
		Long: `Validate checks an exported run document against the frozen run
export schema.

Examples:
  benchfang validate run.json
  benchfang validate - < run.json
  benchfang validate --schema custom-schema.json run.json
`,
		Args: cobra.ExactArgs(1),
		RunE: vc.run,
	}

	cmd.Flags().StringVar(&vc.schemaPath, "schema", "", "Path to an alternative JSON schema (default: embedded)")
	cmd.Flags().BoolVar(&vc.colorize, "color", false, "Force colored output")
	cmd.Flags().BoolVar(&vc.nocolor, "no-color", false, "Disable colored output")

	return cmd
}

func (vc *ValidateCommand) run(cmd *cobra.Command, args []string) error {
	if vc.nocolor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if vc.colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}

	doc, label, err := readDocument(args[0])
	if err != nil {
		return err
	}

	schema, err := vc.loadSchema()
	if err != nil {
		return err
	}

	violations, err := validateDocument(schema, doc)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}

	out := cmd.OutOrStdout()

	if len(violations) == 0 {
		color.New(color.FgGreen).Fprintf(out, "run export is valid (%s)\n", label)

		return nil
	}

	color.New(color.FgRed).Fprintf(out, "run export validation failed (%s)\n", label)
	fmt.Fprintf(out, "\nErrors:\n")

	for _, violation := range violations {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", violation)
	}

	return fmt.Errorf("%s: %w", label, ErrInvalidDocument)
}

// readDocument reads the input file, or stdin when path is "-".
func readDocument(path string) ([]byte, string, error) {
	if path == "-" {
		doc, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return doc, "stdin", nil
	}

	doc, err := os.ReadFile(path) //nolint:gosec // user-supplied input path.
	if err != nil {
		return nil, "", fmt.Errorf("read document: %w", err)
	}

	return doc, path, nil
}

// loadSchema returns the embedded run schema, or the --schema override.
func (vc *ValidateCommand) loadSchema() ([]byte, error) {
	if vc.schemaPath == "" {
		return persist.RunSchema()
	}

	schema, err := os.ReadFile(vc.schemaPath) //nolint:gosec // user-supplied schema path.
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	return schema, nil
}

// validateDocument checks doc against schema and returns one description
// per violation. Numbers decode as json.Number so the schema's integer
// bounds keep their meaning.
func validateDocument(schema, doc []byte) ([]string, error) {
	var decoded any

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	err := dec.Decode(&decoded)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewGoLoader(decoded),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return violations, nil
}
