/*
 * SPDX-FileCopyrightText: © Graphtrace Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package x

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// SubCommand ties a cobra command to the viper instance holding its resolved
// configuration (flags, environment, config file).
type SubCommand struct {
	Cmd  *cobra.Command
	Conf *viper.Viper

	EnvPrefix string
}

// GetStringP returns the value of name if set, the value of shorthand if set,
// and def otherwise.
func (s SubCommand) GetStringP(name, shorthand, def string) string {
	if ok := s.Conf.IsSet(name); ok {
		return s.Conf.GetString(name)
	}
	if ok := s.Conf.IsSet(shorthand); ok {
		return s.Conf.GetString(shorthand)
	}
	return def
}

// NonRootTemplate is the help template used by all graphtrace sub-commands.
var NonRootTemplate string = `{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}`
