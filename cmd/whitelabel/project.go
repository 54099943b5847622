package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/deixis/whitelabel/internal/config"
	"github.com/deixis/whitelabel/internal/envfile"
	"github.com/deixis/whitelabel/internal/form"
	"github.com/deixis/whitelabel/internal/runner"
)

// project is the resolved configuration shared by the commands.
type project struct {
	*config.LoadResult
	runner *runner.Runner
}

func loadProject(o *rootOptions) (*project, error) {
	dir := o.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining project directory: %w", err)
		}
		dir = wd
	}
	loaded, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config
	return &project{
		LoadResult: loaded,
		runner: &runner.Runner{
			ScriptPath: loaded.ScriptPath(),
			Shell:      cfg.ShellName(),
			Timeout:    cfg.Timeout(),
			MaxOutput:  config.DefaultMaxOutput,
			Logger:     o.logger,
		},
	}, nil
}

// formState builds a form state from the project's env file (when present
// and load is set), an optional extra file and KEY=VALUE assignments.
func (p *project) formState(load bool, from string, sets []string) (form.State, error) {
	s := form.NewState(form.DefaultFields)
	if load {
		values, err := envfile.Load(p.EnvFilePath())
		switch {
		case err == nil:
			s = s.Apply(values)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return s, err
		}
	}
	if from != "" {
		values, err := envfile.Load(from)
		if err != nil {
			return s, err
		}
		s = s.Apply(values)
	}
	return applySets(s, sets)
}

// applySets applies KEY=VALUE pairs. Color fields accept #RRGGBB or a
// 0xAARRGGBB token.
func applySets(s form.State, sets []string) (form.State, error) {
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return s, fmt.Errorf("invalid --set %q, want KEY=VALUE", kv)
		}
		f, known := form.Lookup(s.Fields(), key)
		switch {
		case !known:
			return s, fmt.Errorf("unknown field %q", key)
		case f.IsColor() && !strings.HasPrefix(strings.ToLower(value), "0x"):
			s = s.WithColorText(key, value)
		default:
			s = s.With(key, value)
		}
	}
	return s, nil
}

// addFormFlags registers the flags that feed formState.
func addFormFlags(f *pflag.FlagSet, from *string, sets *[]string) {
	f.StringVar(from, "from", "", "env file whose values are applied to the form")
	f.StringArrayVar(sets, "set", nil, "KEY=VALUE applied to the form (repeatable)")
}
