package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "modbusd",
	Short: "modbusd runs a Modbus slave-side protocol engine",
	Long: `modbusd is a reference Modbus slave. It answers TCP, UDP, or RTU
requests against an in-memory data table, useful for exercising a
transport implementation or a master-side client against something real.`,
}

// Execute runs the root command, returning the first error any subcommand
// produces.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
