package expr

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Math(),
		ext.Strings(),
		ext.Lists(),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return nil
}
