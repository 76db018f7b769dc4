package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aptlist/users/internal/models/user"
	"github.com/aptlist/users/internal/services"
)

// userFlags holds the values of the user subcommand flags. A field is only used when its flag was set.
type userFlags struct {
	id, username, email, password, cpassword string
}

var flags userFlags

// userCmd groups the single-operation commands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Run a single user operation and print the response",
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new user",
	Args:  cobra.NoArgs,
	RunE: runUserOperation(func(cmd *cobra.Command, s *services.UserService, cb services.Callback) *services.Task {
		return s.Register(cmd.Context(), user.Registration{
			Username:  optionalFlag(cmd, "username", flags.username),
			Email:     optionalFlag(cmd, "email", flags.email),
			Password:  optionalFlag(cmd, "password", flags.password),
			CPassword: optionalFlag(cmd, "cpassword", flags.cpassword),
		}, cb)
	}),
}

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Find users matching the given fields",
	Args:  cobra.NoArgs,
	RunE: runUserOperation(func(cmd *cobra.Command, s *services.UserService, cb services.Callback) *services.Task {
		return s.Find(cmd.Context(), user.Criteria{
			ID:       idFlag(cmd),
			Username: optionalFlag(cmd, "username", flags.username),
			Email:    optionalFlag(cmd, "email", flags.email),
			Password: optionalFlag(cmd, "password", flags.password),
		}, cb)
	}),
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the user with the given id",
	Args:  cobra.NoArgs,
	RunE: runUserOperation(func(cmd *cobra.Command, s *services.UserService, cb services.Callback) *services.Task {
		return s.Update(cmd.Context(), user.Changes{
			ID:        idFlag(cmd),
			Username:  optionalFlag(cmd, "username", flags.username),
			Email:     optionalFlag(cmd, "email", flags.email),
			Password:  optionalFlag(cmd, "password", flags.password),
			CPassword: optionalFlag(cmd, "cpassword", flags.cpassword),
		}, cb)
	}),
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the user with the given id",
	Args:  cobra.NoArgs,
	RunE: runUserOperation(func(cmd *cobra.Command, s *services.UserService, cb services.Callback) *services.Task {
		return s.Remove(cmd.Context(), user.Ref{ID: idFlag(cmd)}, cb)
	}),
}

func init() {
	for _, cmd := range []*cobra.Command{registerCmd, findCmd, updateCmd, removeCmd} {
		f := cmd.Flags()
		if cmd != registerCmd {
			f.StringVar(&flags.id, "id", "", "user id (24 hex characters)")
		}
		if cmd != removeCmd {
			f.StringVar(&flags.username, "username", "", "username")
			f.StringVar(&flags.email, "email", "", "email address")
			f.StringVar(&flags.password, "password", "", "plaintext password")
		}
		if cmd == registerCmd || cmd == updateCmd {
			f.StringVar(&flags.cpassword, "cpassword", "", "password confirmation")
		}
		userCmd.AddCommand(cmd)
	}
}

type operation func(cmd *cobra.Command, s *services.UserService, cb services.Callback) *services.Task

// runUserOperation starts op, prints its response from the callback and fails the command if the operation failed.
func runUserOperation(op operation) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), true, "stderr")
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		var printErr error
		task := op(cmd, a.userService, func(resp services.Response) {
			printErr = printResponse(cmd.OutOrStdout(), resp)
		})
		resp := task.Response()
		if printErr != nil {
			return printErr
		}
		if !resp.OK() {
			return fmt.Errorf("%s: %w", resp.ErrorName(), resp.Error)
		}
		return nil
	}
}

func printResponse(w io.Writer, resp services.Response) error {
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func optionalFlag(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func idFlag(cmd *cobra.Command) string {
	if id := optionalFlag(cmd, "id", flags.id); id != nil {
		return *id
	}
	return ""
}
