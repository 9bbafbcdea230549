package main

import (
	"fmt"
	"os"

	"github.com/scholarstream/scholarstream/cmd/scholarstream/commands"
	"github.com/scholarstream/scholarstream/logger"
)

func main() {
	// Historical Makefiles invoked the producer as `scholarstream run ...`;
	// the option parser never sees that token.
	os.Args = stripRunAlias(os.Args)

	if err := logger.Initialize(false); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Cleanup()

	commands.RootCmd.AddCommand(commands.SqlCmd)
	commands.RootCmd.AddCommand(commands.DashboardCmd)
	commands.RootCmd.AddCommand(commands.VersionCmd)

	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// stripRunAlias drops a leading literal "run" argument. Pure pre-parse
// normalization, decoupled from option parsing.
func stripRunAlias(args []string) []string {
	if len(args) > 1 && args[1] == "run" {
		return append(args[:1:1], args[2:]...)
	}
	return args
}
