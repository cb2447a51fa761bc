package errors_test

import (
	"fmt"

	"github.com/shellkit/shellkit/compiler/errors"
)

// ExampleKernelError_FormatForTerminal demonstrates terminal formatting
func ExampleKernelError_FormatForTerminal() {
	sourceContent := `if [ $x == 1 ]
then
  echo "match"
fi
`

	loc := errors.SourceLocation{
		File:   "deploy.sh",
		Line:   1,
		Column: 4,
		Length: 14,
	}

	err := errors.New(
		errors.KindParse,
		errors.ErrSingleBracketTest,
		"'[ ... ]' is not a recognized test form",
		loc,
		errors.Error,
	)

	err = errors.EnrichError(err, sourceContent)

	output := err.FormatForTerminal()
	fmt.Println(errors.StripColors(output))

	// Output includes error, location, context, and suggestion
}

// ExampleErrorRecovery demonstrates collecting multiple errors
func ExampleErrorRecovery() {
	recovery := errors.NewErrorRecovery()

	for i := 1; i <= 3; i++ {
		loc := errors.SourceLocation{
			File:   "deploy.sh",
			Line:   i,
			Column: 1,
		}
		err := errors.New(
			errors.KindParse,
			errors.ErrUnexpectedToken,
			fmt.Sprintf("unexpected token at line %d", i),
			loc,
			errors.Error,
		)
		recovery.Recover(err)
	}

	fmt.Printf("Collected %d errors\n", recovery.ErrorCount())
	fmt.Println(recovery.Summary())

	// Output:
	// Collected 3 errors
	// Found 3 error(s)
}

// ExampleFormatErrorsAsJSON demonstrates JSON output
func ExampleFormatErrorsAsJSON() {
	loc := errors.SourceLocation{
		File:   "deploy.sh",
		Line:   5,
		Column: 10,
	}

	err := errors.New(
		errors.KindArgument,
		errors.ErrMissingRequiredParam,
		"missing required parameter 'env'",
		loc,
		errors.Error,
	)

	jsonOutput, _ := err.FormatAsJSON()
	fmt.Println("JSON output available")
	_ = jsonOutput

	// Output:
	// JSON output available
}
