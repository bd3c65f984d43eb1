package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read for flag defaults when present.
const DefaultConfigFile = "~/.reflections/config.yaml"

// LoadDotEnv loads variables from .env files without overriding the environment.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// YAMLResolver is a kong.ConfigurationLoader for YAML files. Keys match flag names,
// with dashes or underscores, and nested maps address subcommand flags, for example
// "posts: {all: true}".
func YAMLResolver(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var f kong.ResolverFunc = func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		scope := values
		if parent != nil && parent.Command != nil {
			for _, name := range commandPath(parent.Command) {
				next, ok := lookup(scope, name).(map[string]any)
				if !ok {
					scope = values
					break
				}
				scope = next
			}
		}

		if v := lookup(scope, flag.Name); v != nil {
			return v, nil
		}
		return lookup(values, flag.Name), nil
	}
	return f, nil
}

func lookup(m map[string]any, name string) any {
	if v, ok := m[name]; ok {
		return v
	}
	if v, ok := m[strings.ReplaceAll(name, "-", "_")]; ok {
		return v
	}
	return nil
}

// commandPath lists the command names from the root down to n.
func commandPath(n *kong.Node) []string {
	var names []string
	for ; n != nil && n.Type == kong.CommandNode; n = n.Parent {
		names = append([]string{n.Name}, names...)
	}
	return names
}
