package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nguyentranbao-ct/chat-client/internal/chatview"
	"github.com/nguyentranbao-ct/chat-client/internal/models"
	"github.com/nguyentranbao-ct/chat-client/internal/usecase"
	"github.com/nguyentranbao-ct/chat-client/internal/usercache"
)

var tailCmd = &cobra.Command{
	Use:   "tail <chat-id>",
	Short: "Follow a chat and print messages as they arrive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || chatID <= 0 {
			return fmt.Errorf("invalid chat id %q", args[0])
		}

		var (
			view  *chatview.View
			auth  usecase.AuthUsecase
			users usercache.Cache
		)
		return runWith(func(ctx context.Context) error {
			me, ok := auth.CurrentUser()
			if !ok {
				return fmt.Errorf("not signed in, run login first")
			}

			events, cancel, err := view.Subscribe(64)
			if err != nil {
				return err
			}
			defer cancel()

			if err := view.Activate(ctx, chatID); err != nil {
				return err
			}
			p := printer{out: cmd.OutOrStdout(), users: users, me: me.ID}
			for {
				select {
				case <-ctx.Done():
					return nil
				case e, ok := <-events:
					if !ok {
						return nil
					}
					p.print(ctx, e)
				}
			}
		}, &view, &auth, &users)
	},
}

type printer struct {
	out   io.Writer
	users usercache.Cache
	me    int64
}

func (p printer) print(ctx context.Context, e chatview.Event) {
	switch e.Kind {
	case chatview.EventReset:
		fmt.Fprintf(p.out, "-- chat %d --\n", e.ChatID)
	case chatview.EventLoaded, chatview.EventAppended, chatview.EventPrepended:
		for _, m := range e.Messages {
			p.line(ctx, "", m)
		}
	case chatview.EventEdited:
		for _, m := range e.Messages {
			p.line(ctx, "(edited) ", m)
		}
	case chatview.EventRestored:
		for _, m := range e.Messages {
			p.line(ctx, "(restored) ", m)
		}
	case chatview.EventDeleted:
		for _, m := range e.Messages {
			fmt.Fprintf(p.out, "[%d] (deleted)\n", m.ID)
		}
	}
}

func (p printer) line(ctx context.Context, prefix string, m models.Message) {
	fmt.Fprintf(p.out, "[%d] %s %s: %s%s\n",
		m.ID, m.Timestamp.Local().Format("15:04:05"), p.author(ctx, m.AuthorID), prefix, m.Content)
}

// author names id, loading it through the user cache on a miss.
func (p printer) author(ctx context.Context, id int64) string {
	if id == p.me {
		return "you"
	}
	if u, ok, _ := p.users.Resolve(ctx, id); ok {
		return u.Username
	}
	return "user " + strconv.FormatInt(id, 10)
}
