package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/prepwise/prepwise/internal/chat"
	"github.com/prepwise/prepwise/internal/client"
	"github.com/prepwise/prepwise/internal/config"
)

// newAPIClient builds the backend client from loaded configuration.
func newAPIClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	api, err := client.New(client.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.RequestTimeout,
		Logger:  slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating API client: %w", err)
	}
	return api, nil
}

func newSessionsCmd() *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage interview sessions",
	}

	sessionsCmd.AddCommand(
		newSessionsListCmd(),
		newSessionsCreateCmd(),
		newSessionsShowCmd(),
		newSessionsCompleteCmd(),
		newSessionsDeleteCmd(),
	)

	return sessionsCmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List interview sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd.Context())
		},
	}
}

func newSessionsCreateCmd() *cobra.Command {
	var params client.CreateSessionParams

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new interview session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsCreate(cmd.Context(), params)
		},
	}

	createCmd.Flags().StringVar(&params.JobTitle, "job-title", "", "Target job title (required)")
	createCmd.Flags().StringVar(&params.CompanyName, "company", "", "Target company (required)")
	createCmd.Flags().StringVar(&params.Topic, "topic", "", "Interview topic (required)")
	createCmd.Flags().StringVar(&params.Difficulty, "difficulty", "", "Difficulty, e.g. junior, mid, senior")
	_ = createCmd.MarkFlagRequired("job-title")
	_ = createCmd.MarkFlagRequired("company")
	_ = createCmd.MarkFlagRequired("topic")

	return createCmd
}

func newSessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd.Context(), args[0])
		},
	}
}

func newSessionsCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Mark a session as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsComplete(cmd.Context(), args[0])
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session, its messages, and its audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pointer, err := chat.DefaultStateFile()
			if err != nil {
				slog.Warn("active-session state unavailable", "error", err)
				pointer = nil
			}
			return runSessionsDelete(cmd.Context(), args[0], pointer)
		},
	}
}

func runSessionsList(ctx context.Context) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}

	sessions, err := api.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet. Create one with: prepwise sessions create")
		return nil
	}

	for _, s := range sessions {
		fmt.Printf("%s  %-12s %s @ %s (%s)  %s\n",
			s.ID, s.Status, s.JobTitle, s.CompanyName, s.Topic, formatTime(s.CreatedAt))
	}
	return nil
}

func runSessionsCreate(ctx context.Context, params client.CreateSessionParams) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}

	sess, err := api.CreateSession(ctx, params)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	fmt.Printf("Created session %s: %s @ %s (%s)\n",
		sess.ID, sess.JobTitle, sess.CompanyName, sess.Topic)
	return nil
}

func runSessionsShow(ctx context.Context, sessionID string) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}

	messages, err := api.Messages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("fetching messages: %w", err)
	}

	if len(messages) == 0 {
		fmt.Println("No messages yet.")
		return nil
	}

	for _, msg := range messages {
		role := "You"
		if msg.Role == chat.RoleAI {
			role = "Interviewer"
		}
		text := msg.Text
		if text == "" && msg.AudioKey != "" {
			text = "[voice answer]"
		}
		fmt.Printf("%s> %s\n\n", role, text)
	}
	return nil
}

func runSessionsComplete(ctx context.Context, sessionID string) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}

	sess, err := api.CompleteSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("completing session: %w", err)
	}

	fmt.Printf("Session %s is now %s\n", sess.ID, sess.Status)
	return nil
}

func runSessionsDelete(ctx context.Context, sessionID string, pointer *chat.StateFile) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}

	if err := api.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	// The active-session pointer must not outlive the session it names.
	if pointer != nil {
		if err := pointer.ClearIf(sessionID); err != nil {
			slog.Warn("clearing active session", "session_id", sessionID, "error", err)
		}
	}

	fmt.Printf("Deleted session %s\n", sessionID)
	return nil
}

// formatTime formats time in a human-readable format.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
