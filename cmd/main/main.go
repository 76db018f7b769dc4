// Package main is the entry point of the users service.
//
// `serve` runs the HTTP API backed by MongoDB. The `user` commands run a single operation and print its
// response envelope, which is handy for seeding and inspecting a database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile string
	memory  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "users",
	Short:         "User registration and lookup service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "secrets/.env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&memory, "memory", false, "use an in-memory store instead of MongoDB")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
