package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepwise/prepwise/internal/audio"
	"github.com/prepwise/prepwise/internal/chat"
)

func newSendCmd() *cobra.Command {
	var audioPath string

	sendCmd := &cobra.Command{
		Use:   "send <session-id> [text...]",
		Short: "Send one answer without the TUI",
		Long: `Send a single answer to an interview session and print the reply.

Text answers are passed as arguments; audio answers come from a WAV file
via --audio. Exactly one of the two must be given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args[1:], " "))
			return runSend(cmd.Context(), args[0], text, audioPath)
		},
	}

	sendCmd.Flags().StringVar(&audioPath, "audio", "", "Path to a WAV file to send as the answer")

	return sendCmd
}

func runSend(ctx context.Context, sessionID, text, audioPath string) error {
	if (text == "") == (audioPath == "") {
		return errors.New("provide either answer text or --audio, not both")
	}

	api, err := newAPIClient()
	if err != nil {
		return err
	}

	var res chat.SendResult
	switch {
	case audioPath != "":
		payload, err := audio.LoadWAV(audioPath)
		if err != nil {
			return fmt.Errorf("loading audio: %w", err)
		}
		res, err = api.SendAudio(ctx, sessionID, payload)
		if err != nil {
			return fmt.Errorf("sending audio: %w", err)
		}
	default:
		res, err = api.SendText(ctx, sessionID, text)
		if err != nil {
			return fmt.Errorf("sending answer: %w", err)
		}
	}

	reply, err := replyFrom(res)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

// replyFrom extracts the interviewer reply from a settled send. A 2xx
// response missing either message is malformed and reported as an error
// rather than dereferenced.
func replyFrom(res chat.SendResult) (string, error) {
	if res.UserMessage == nil || res.AIMessage == nil {
		return "", fmt.Errorf("backend returned an incomplete send result: %w", chat.ErrMalformedResult)
	}
	return res.AIMessage.Text, nil
}
