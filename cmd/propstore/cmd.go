// Copyright 2023 Arista Networks, Inc. All rights reserved.
//
// Use of this source code is governed by the MIT license that can be found
// in the LICENSE file.
//

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"barney.ci/go-propstore"
)

type Cmd struct {
	Stdout io.Writer
	Stderr io.Writer

	v *viper.Viper
}

func (c *Cmd) Run(ctx context.Context, args []string) error {
	c.v = viper.New()
	c.v.SetEnvPrefix("PROPSTORE")
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:          "propstore",
		Short:        "inspect and edit a dead property store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path := c.v.GetString("config"); path != "" {
				c.v.SetConfigFile(path)
				return c.v.ReadInConfig()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "configuration file")
	flags.StringP("path", "p", "", "path of the store")
	flags.String("shelf", propstore.ShelfFile, "kind of store file: file or bolt")
	flags.Int("verbose", 0, "diagnostic level")
	flags.String("log-level", "warn", "log level")
	if err := c.bind(flags, map[string]string{
		"config":       "config",
		"storage_path": "path",
		"shelf":        "shelf",
		"verbose":      "verbose",
		"log_level":    "log-level",
	}); err != nil {
		return err
	}

	root.AddCommand(c.listCmd())
	root.AddCommand(c.getCmd())
	root.AddCommand(c.setCmd())
	root.AddCommand(c.rmCmd())
	root.AddCommand(c.copyCmd())
	root.AddCommand(c.dumpCmd())
	root.AddCommand(c.checkCmd())

	root.SetArgs(args)
	root.SetOut(c.Stdout)
	root.SetErr(c.Stderr)

	return root.ExecuteContext(ctx)
}

// bind makes each viper key follow the flag it maps to.
func (c *Cmd) bind(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		if err := c.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// open returns the manager for the configured store. Callers must Close it.
func (c *Cmd) open(readOnly bool) (propstore.PropertyManager[json.RawMessage], error) {
	cfg, err := propstore.DecodeConfig(map[string]any{
		"backend":      propstore.BackendDurable,
		"storage_path": c.v.GetString("storage_path"),
		"shelf":        c.v.GetString("shelf"),
		"read_only":    readOnly,
		"verbose":      c.v.Get("verbose"),
	})
	if err != nil {
		return nil, err
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "propstore-cli",
		Level:  hclog.LevelFromString(c.v.GetString("log_level")),
		Output: c.Stderr,
	})
	return propstore.New[json.RawMessage](cfg, propstore.WithLogger(logger))
}

// withStore runs fn against the configured store, closing it afterwards.
func (c *Cmd) withStore(readOnly bool, fn func(m propstore.PropertyManager[json.RawMessage]) error) (err error) {
	m, err := c.open(readOnly)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(m)
}

func (c *Cmd) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [resource]",
		Short: "list resources, or the properties of a resource",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(true, func(m propstore.PropertyManager[json.RawMessage]) error {
				var (
					names []string
					err   error
				)
				if len(args) == 0 {
					names, err = m.Resources()
				} else {
					names, err = m.Properties(args[0])
				}
				if err != nil {
					return err
				}
				for _, name := range names {
					cmd.Println(name)
				}
				return nil
			})
		},
	}
}

func (c *Cmd) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get resource property",
		Short: "print the value of a property",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(true, func(m propstore.PropertyManager[json.RawMessage]) error {
				value, ok, err := m.Property(args[0], args[1])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s has no property %s", args[0], args[1])
				}
				cmd.Println(string(value))
				return nil
			})
		},
	}
}

func (c *Cmd) setCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "set resource property json",
		Short: "set the value of a property",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			resource, name, value := args[0], args[1], json.RawMessage(args[2])
			if err := validArgs(resource, name); err != nil {
				return err
			}
			if !json.Valid(value) {
				return fmt.Errorf("value of %s is not valid JSON", name)
			}
			return c.withStore(dryRun, func(m propstore.PropertyManager[json.RawMessage]) error {
				return m.WriteProperty(resource, name, value, dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only validate the arguments")
	return cmd
}

func (c *Cmd) rmCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "rm resource [property]",
		Short: "remove a property, or all properties of a resource",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := validArgs(args[0], "-"); err != nil {
					return err
				}
				if dryRun {
					return nil
				}
				return c.withStore(false, func(m propstore.PropertyManager[json.RawMessage]) error {
					return m.RemoveProperties(args[0])
				})
			}
			if err := validArgs(args[0], args[1]); err != nil {
				return err
			}
			return c.withStore(dryRun, func(m propstore.PropertyManager[json.RawMessage]) error {
				return m.RemoveProperty(args[0], args[1], dryRun)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only validate the arguments")
	return cmd
}

func (c *Cmd) copyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy src dst",
		Short: "replace the properties of dst with those of src",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validArgs(args[0], "-"); err != nil {
				return err
			}
			if err := validArgs(args[1], "-"); err != nil {
				return err
			}
			return c.withStore(false, func(m propstore.PropertyManager[json.RawMessage]) error {
				return m.CopyProperties(args[0], args[1])
			})
		},
	}
}

func (c *Cmd) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "print every resource and property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(true, func(m propstore.PropertyManager[json.RawMessage]) error {
				return m.Dump(cmd.OutOrStdout())
			})
		},
	}
}

func (c *Cmd) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "run the consistency check of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(true, func(m propstore.PropertyManager[json.RawMessage]) error {
				// Check does not open the store by itself.
				if _, err := m.Resources(); err != nil {
					return err
				}
				if !m.Check("propstore check") {
					return errors.New("consistency check failed")
				}
				cmd.Println("ok")
				return nil
			})
		},
	}
}

// validArgs reports malformed arguments as errors rather than letting the
// manager panic on them.
func validArgs(resource, name string) error {
	if !strings.HasPrefix(resource, "/") {
		return fmt.Errorf("resource %q must begin with /", resource)
	}
	if name == "" {
		return errors.New("empty property name")
	}
	return nil
}
