package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"herald/client/inbox"
	"herald/client/push"
	"herald/client/session"
	"herald/internal/domain/entity"
	"herald/internal/domain/event"
	"herald/internal/errors"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/term"
)

const pageLimit = 100

type app struct {
	coord  *session.Coordinator
	out    io.Writer
	logger *slog.Logger
}

func (a *app) run(ctx context.Context, name string, args []string) error {
	switch name {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "unread":
		return a.unread(ctx)
	case "list":
		return a.list(ctx, args)
	case "read":
		return a.read(ctx, args)
	case "tail":
		return a.tail(ctx, args)
	default:
		printUsage()

		return errors.Errorf("unknown command %q", name)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("login", flag.ExitOnError)
	email := cmd.String("email", "", "Account email")
	password := cmd.String("password", "", "Account password")
	_ = cmd.Parse(args)

	if *email == "" {
		return errors.New("-email is required")
	}
	if *password == "" {
		*password = os.Getenv("HERALD_PASSWORD")
	}
	if *password == "" {
		pw, err := promptPassword()
		if err != nil {
			return err
		}
		*password = pw
	}

	identity, err := a.coord.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", identity.DisplayName, identity.ID)

	return nil
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password given and stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}

	return string(raw), nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.coord.Logout(ctx); err != nil && !errors.Is(err, session.ErrSessionEnded) {
		return err
	}

	fmt.Fprintln(a.out, "Logged out")

	return nil
}

type unreadCount struct {
	Count int64 `json:"count"`
}

func (a *app) unread(ctx context.Context) error {
	var out unreadCount
	if err := a.coord.DoJSON(ctx, http.MethodGet, "/api/v1/notifications/unread-count", nil, &out); err != nil {
		return err
	}

	fmt.Fprintln(a.out, out.Count)

	return nil
}

func (a *app) fetchPage(ctx context.Context, limit, offset int) (*entity.NotificationPage, error) {
	var page entity.NotificationPage
	path := fmt.Sprintf("/api/v1/notifications?limit=%d&offset=%d", limit, offset)
	if err := a.coord.DoJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("list", flag.ExitOnError)
	limit := cmd.Int("limit", 20, "Page size")
	offset := cmd.Int("offset", 0, "Page offset")
	asJSON := cmd.Bool("json", false, "Print the raw page")
	_ = cmd.Parse(args)

	page, err := a.fetchPage(ctx, *limit, *offset)
	if err != nil {
		return err
	}

	if *asJSON {
		return json.NewEncoder(a.out).Encode(page)
	}

	tw := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tREAD\tCREATED\tMESSAGE")
	for _, n := range page.Items {
		mark := " "
		if n.Read {
			mark = "x"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", n.ID, n.Type, mark, n.CreatedAt.Local().Format(time.DateTime), n.Message)
	}
	if err := tw.Flush(); err != nil {
		return errors.WithStack(err)
	}

	fmt.Fprintf(a.out, "%d of %d shown, %d unread\n", len(page.Items), page.Total, page.Unread)

	return nil
}

func (a *app) read(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("read", flag.ExitOnError)
	all := cmd.Bool("all", false, "Mark every notification read")
	_ = cmd.Parse(args)

	if *all {
		var out struct {
			Updated int64 `json:"updated"`
		}
		if err := a.coord.DoJSON(ctx, http.MethodPatch, "/api/v1/notifications/read-all", nil, &out); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Marked %d read\n", out.Updated)

		return nil
	}

	if cmd.NArg() != 1 {
		return errors.New("read needs a notification ID or -all")
	}
	id, err := uuid.Parse(cmd.Arg(0))
	if err != nil {
		return errors.Wrap(err, "notification ID")
	}

	var n entity.Notification
	if err := a.coord.DoJSON(ctx, http.MethodPatch, "/api/v1/notifications/"+id.String()+"/read", nil, &n); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Read %s\n", n.ID)

	return nil
}

// tail prints pushed events. Every (re)connect pulls a page first so the
// local view converges even when pushes were missed.
func (a *app) tail(ctx context.Context, args []string) error {
	cmd := flag.NewFlagSet("tail", flag.ExitOnError)
	asJSON := cmd.Bool("json", false, "Print raw event envelopes")
	_ = cmd.Parse(args)

	box := inbox.New()
	client := push.New(push.Config{
		URL:    push.WebsocketURL(a.coord.BaseURL()),
		Tokens: a.coord,
		Logger: a.logger,
	})

	return client.Run(ctx, func(e event.Event) {
		if e.Type == event.TypeConnected {
			page, err := a.fetchPage(ctx, pageLimit, 0)
			if err != nil {
				a.logger.Warn("Pull after connect failed", slog.Any("error", err))
			} else {
				box.Reconcile(page)
			}
		} else {
			box.Apply(e)
		}

		if *asJSON {
			_ = json.NewEncoder(a.out).Encode(e)

			return
		}
		fmt.Fprintf(a.out, "%s %-26s %s  (unread %d)\n",
			time.Now().Format(time.TimeOnly), e.Type, describe(e), box.Unread())
	})
}

func describe(e event.Event) string {
	var out string
	event.Handlers{
		Connected: func(p *event.Connected) {
			out = "as " + p.AccountID.String()
		},
		NotificationNew: func(p *event.NotificationNew) {
			out = fmt.Sprintf("%s %s: %s", p.Notification.ID, p.Notification.Type, oneLine(p.Notification.Message))
		},
		NotificationRead: func(p *event.NotificationRead) {
			out = p.ID.String()
		},
		NotificationAllRead: func(p *event.NotificationAllRead) {
			out = fmt.Sprintf("%d marked", p.Count)
		},
		UnreadCount: func(p *event.UnreadCount) {
			out = fmt.Sprintf("%d", p.Count)
		},
		PresenceChanged: func(p *event.PresenceChanged) {
			out = fmt.Sprintf("%s %s", p.AccountID, p.Status)
		},
	}.Dispatch(e)

	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
