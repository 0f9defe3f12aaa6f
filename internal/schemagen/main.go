// Command schemagen generates the JSON schema embedded by pkg/config.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
)

func main() {
	outFile := flag.String("o", "sweep.v1beta1.json", "Output file for the generated schema")
	flag.Parse()

	jsData, err := generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate JSON schema: %v\n", err)
		os.Exit(1)
	}

	err = os.WriteFile(*outFile, jsData, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "write schema file: %v\n", err)
		os.Exit(1)
	}
}

// generate builds the document schema. The document is a free-form mapping
// whose values must be scalars or arrays of scalars, with the reserved `meta`
// mapping holding the watcher/exclusion metadata.
func generate() ([]byte, error) {
	scalarRef := &jsonschema.Schema{Ref: "#/$defs/scalar"}

	metaProps := jsonschema.NewProperties()
	metaProps.Set("history_file", &jsonschema.Schema{
		Type:      "string",
		Title:     "History File",
		MinLength: ptr(uint64(1)),
	})
	metaProps.Set("exclude_configs", &jsonschema.Schema{
		Type:  "array",
		Title: "Exclusion Rules",
		Items: &jsonschema.Schema{
			Type:                 "object",
			AdditionalProperties: scalarRef,
		},
	})
	metaProps.Set("exclude_matching", &jsonschema.Schema{
		Type:  "array",
		Title: "Exclusion Expressions",
		Items: &jsonschema.Schema{Type: "string"},
	})
	metaProps.Set("refresh_interval", &jsonschema.Schema{
		Type:             "number",
		Title:            "Refresh Interval",
		ExclusiveMinimum: json.Number("0"),
	})

	props := jsonschema.NewProperties()
	props.Set("meta", &jsonschema.Schema{
		Type:       "object",
		Title:      "Metadata",
		Properties: metaProps,
	})

	schema := &jsonschema.Schema{
		Version:    "https://json-schema.org/draft/2020-12/schema",
		ID:         jsonschema.ID("https://raw.githubusercontent.com/macropower/sweep/refs/heads/main/pkg/config/sweep.v1beta1.json"),
		Type:       "object",
		Title:      "Sweep Configuration",
		Properties: props,
		Definitions: jsonschema.Definitions{
			"scalar": {
				OneOf: []*jsonschema.Schema{
					{Type: "string"},
					{Type: "number"},
					{Type: "boolean"},
				},
			},
		},
		AdditionalProperties: &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{
				scalarRef,
				{Type: "array", Items: scalarRef},
			},
		},
	}

	return json.MarshalIndent(schema, "", "  ")
}

func ptr[T any](v T) *T {
	return &v
}
