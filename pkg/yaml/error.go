package yaml

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml/token"
)

// Error represents a YAML error. It includes the original error, and
// optionally the [*token.Token] where the error occurred, or a slash-separated
// document path for schema validation failures.
type Error struct {
	Err   error
	Token *token.Token
	Path  string
}

func (e *Error) Error() string {
	var sb strings.Builder

	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}

	sb.WriteString(e.Err.Error())

	if e.Token != nil {
		fmt.Fprintf(&sb, " (line %d, column %d)", e.Token.Position.Line, e.Token.Position.Column)
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}
