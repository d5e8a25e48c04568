package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"gopkg.in/yaml.v3"
)

// readConfig reads YAML file mapping flag names to their values. Values can
// be scalars or, for repeated flags, lists of scalars.
func readConfig(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var m map[string]any

	err = yaml.Unmarshal(b, &m)
	if err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	return m, nil
}

// withConfig sets flags of the command missing in command line to values from
// the config file. Keys not matching any flag of the command are ignored.
func withConfig(c *cli.Context) error {
	path := c.GlobalString(configFlag)
	if path == "" {
		return nil
	}

	m, err := readConfig(path)
	if err != nil {
		return err
	}

	return applyConfig(c, c.Command.Flags, m)
}

func applyConfig(c *cli.Context, flags []cli.Flag, m map[string]any) error {
	for _, f := range flags {
		name := f.GetName()

		v, ok := m[name]
		if !ok || c.IsSet(name) {
			continue
		}

		values, ok := v.([]any)
		if !ok {
			values = []any{v}
		}

		for i := range values {
			err := c.Set(name, fmt.Sprint(values[i]))
			if err != nil {
				return fmt.Errorf("apply config value of '%s': %w", name, err)
			}
		}
	}

	return nil
}
