package executor

import (
	"errors"
	"fmt"

	"github.com/nxshell/nxshell/pkg/cli"
)

// ErrCanceled is returned when the user declines a confirmation.
var ErrCanceled = errors.New("operation canceled")

// ForceOption skips the confirmation of destructive commands.
var ForceOption = cli.OptionSpec{
	Short:       "f",
	Long:        "force",
	Boolean:     true,
	Description: "do not ask for confirmation",
}

// Confirm asks the user to approve a destructive action described by
// message. It returns nil when approved or forced with ForceOption, and
// ErrCanceled when declined. Without a prompter nothing is approved.
func Confirm(env *cli.Env, args *cli.ParsedArgs, message string) error {
	if args != nil && args.Bool(ForceOption.Key()) {
		return nil
	}
	if env.Prompter == nil {
		return ErrCanceled
	}

	ok, err := env.Prompter.Confirm(message)
	if err != nil {
		return fmt.Errorf("confirmation prompt failed: %w", err)
	}
	if !ok {
		return ErrCanceled
	}
	return nil
}
