package value

import "fmt"

func errSyntax(dataType, literal string) error {
	return fmt.Errorf("%s: invalid literal %q", dataType, literal)
}

func errSyntaxWrap(dataType, literal string, cause error) error {
	return fmt.Errorf("%s: invalid literal %q: %w", dataType, literal, cause)
}
