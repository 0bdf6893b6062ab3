package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nguyentranbao-ct/chat-client/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-client/internal/usercache"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <chat-id>",
	Short: "Print archived messages of a chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || chatID <= 0 {
			return fmt.Errorf("invalid chat id %q", args[0])
		}

		var (
			archive mongodb.MessageArchive
			users   usercache.Cache
		)
		return runWith(func(ctx context.Context) error {
			msgs, err := archive.History(ctx, chatID, historyLimit)
			if errors.Is(err, mongodb.ErrArchiveDisabled) {
				return fmt.Errorf("%w, set DATABASE_ENABLED=true", err)
			}
			if err != nil {
				return err
			}
			// oldest first, like the chat view
			slices.Reverse(msgs)
			p := printer{out: cmd.OutOrStdout(), users: users}
			for _, m := range msgs {
				p.line(ctx, "", m)
			}
			return nil
		}, &archive, &users)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "number of messages to print")
}
