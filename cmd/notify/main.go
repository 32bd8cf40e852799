// Command notify reads and watches BlogSphere notifications from a terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blogsphere/backend/internal/client"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/realtime"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	server  string
	token   string
	timeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "notify",
		Short: "Read and watch BlogSphere notifications",
		Long: `notify lists your unread notifications, marks them read and streams new ones
as they arrive.

The session token comes from --token or the BLOGSPHERE_TOKEN environment variable.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.token == "" {
				opts.token = os.Getenv("BLOGSPHERE_TOKEN")
			}
			if opts.token == "" {
				return errors.New("no token: pass --token or set BLOGSPHERE_TOKEN")
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.server, "server", "s", envOr("BLOGSPHERE_URL", "http://localhost:8080"), "BlogSphere server URL")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", "", "Session token (or set BLOGSPHERE_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "Timeout for single requests")

	rootCmd.AddCommand(unreadCmd(opts), readCmd(opts), readAllCmd(opts), watchCmd(opts))
	return rootCmd
}

func unreadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "List unread notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return printUnread(ctx, cmd.OutOrStdout(), client.New(opts.server, opts.token))
		},
	}
}

func readCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			msg, err := client.New(opts.server, opts.token).MarkRead(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func readAllCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			n, err := client.New(opts.server, opts.token).MarkAllRead(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d notifications marked as read\n", n)
			return nil
		},
	}
}

func watchCmd(opts *options) *cobra.Command {
	var retry time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream notifications as they arrive",
		Long: `watch joins your notification room and prints blog and personal notifications.

Pushes are best-effort, so after every reconnect the unread list is fetched again to
catch anything sent while the connection was down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), cmd.OutOrStdout(), client.New(opts.server, opts.token), opts.timeout, retry)
		},
	}
	cmd.Flags().DurationVar(&retry, "retry", 3*time.Second, "Delay before reconnecting")
	return cmd
}

func watch(ctx context.Context, out io.Writer, c *client.Client, timeout, retry time.Duration) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	me, err := c.Me(reqCtx)
	cancel()
	if err != nil {
		return err
	}
	room := me.ID.Hex()

	// Fetch after joining so nothing sent in between is missed.
	fetchUnread := func() {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := printUnread(reqCtx, out, c); err != nil {
			logrus.WithError(err).Warn("Failed to fetch unread notifications")
		}
	}

	for {
		err := c.Watch(ctx, room, fetchUnread, func(f realtime.Frame) { printFrame(out, f) })
		if ctx.Err() != nil {
			return nil
		}
		logrus.WithError(err).Warnf("Connection lost, reconnecting in %s", retry)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retry):
		}
	}
}

func printUnread(ctx context.Context, out io.Writer, c *client.Client) error {
	unread, err := c.Unread(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d unread\n", unread.UnreadCount)
	for _, n := range unread.Notifications {
		from := ""
		if n.Creator != nil {
			from = " (" + n.Creator.Name + ")"
		}
		fmt.Fprintf(out, "  %s  [%s] %s: %s%s\n", n.ID.Hex(), n.Type, n.Title, n.Message, from)
	}
	return nil
}

func printFrame(out io.Writer, f realtime.Frame) {
	switch f.Event {
	case models.EventNewNotification, models.EventBlogNotification:
	default:
		return
	}
	var body struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(f.Payload, &body); err != nil {
		fmt.Fprintf(out, "%s %s\n", f.Event, f.Payload)
		return
	}
	fmt.Fprintf(out, "%s  %s: %s\n", f.Event, body.Title, body.Message)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
