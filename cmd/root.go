package cmd

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Running prepwise with no arguments
// starts the interactive interview TUI.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prepwise",
		Short: "Prepwise - mock interview practice in your terminal",
		Long: `Prepwise runs AI mock interviews in the terminal.

Create a session for the role you are preparing for, then answer the
interviewer's questions by typing or by sending recorded WAV answers.
Running prepwise without arguments starts the interactive TUI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		newChatCmd(),
		newSessionsCmd(),
		newSendCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
