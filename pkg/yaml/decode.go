package yaml

import (
	"errors"
	"io"

	"github.com/goccy/go-yaml"
)

// MapSlice is an ordered map. Decoding a document into a MapSlice preserves
// the key order of the source.
type MapSlice = yaml.MapSlice

// MapItem is a single key/value pair in a [MapSlice].
type MapItem = yaml.MapItem

type Decoder struct {
	d *yaml.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		d: yaml.NewDecoder(r, yaml.AllowDuplicateMapKey()),
	}
}

// NewOrderedDecoder creates a [Decoder] that decodes mappings into [MapSlice]
// when the target is untyped, preserving source key order.
func NewOrderedDecoder(r io.Reader) *Decoder {
	return &Decoder{
		d: yaml.NewDecoder(r, yaml.AllowDuplicateMapKey(), yaml.UseOrderedMap()),
	}
}

func (d *Decoder) Decode(v any) error {
	err := d.d.Decode(v)
	if err == nil {
		return nil
	}

	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		return &Error{
			Err:   errors.New(yamlErr.GetMessage()),
			Token: yamlErr.GetToken(),
		}
	}

	//nolint:wrapcheck // Return the original error if it's not a [yaml.Error].
	return err
}
