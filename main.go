package main

import (
	"fmt"
	"os"

	"github.com/ecotracker/fillstate/cmd/server"
	"github.com/ecotracker/fillstate/internal/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

var (
	rootCmd = &cobra.Command{
		Use:   "fillstate",
		Short: "Waste container fill state tracking",
		Long:  `Tracks container fill levels per tenant and propagates status changes to live observers and push recipients.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
)

func init() {
	rootCmd.AddCommand(server.Cmd)
	rootCmd.PersistentFlags().Var(
		zerologLevel{&utils.LogLevel}, "log-level", "Log level, one of trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&utils.LogJson, "log-json", false, "Log in json format")
}

type zerologLevel struct {
	level *zerolog.Level
}

func (l zerologLevel) String() string {
	return l.level.String()
}

func (l zerologLevel) Set(s string) error {
	parsed, err := zerolog.ParseLevel(s)
	if err != nil {
		return err
	}
	*l.level = parsed
	return nil
}

func (l zerologLevel) Type() string {
	return "string"
}

func main() {
	utils.LogLevel = utils.DefaultLogLevel
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
