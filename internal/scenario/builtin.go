package scenario

import (
	"embed"
	"io/fs"
	"path"
	"strings"

	perrors "github.com/matzehuels/parttree/pkg/errors"
)

//go:embed scenarios/*.toml
var builtins embed.FS

// Builtins returns the names of the scenarios shipped with the binary.
func Builtins() []string {
	entries, _ := fs.ReadDir(builtins, "scenarios")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	return names
}

// Builtin decodes the shipped scenario called name.
func Builtin(name string) (*Scenario, error) {
	data, err := builtins.ReadFile(path.Join("scenarios", name+".toml"))
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "no built-in scenario %q (have %v)", name, Builtins())
	}
	return Decode(data, "toml")
}
