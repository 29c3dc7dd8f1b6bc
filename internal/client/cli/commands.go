package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultScheduleDays = 7

func usage(s string) error { return errors.New("usage: " + s) }

func (a *App) Register(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("register <user>")
	}
	pw, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(pw)

	if err := a.api.Register(ctx, args[0], string(pw)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "User %s registered, you can login now\n", args[0])
	return nil
}

func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("login <user>")
	}
	pw, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer wipe(pw)

	if err := a.api.Login(ctx, args[0], string(pw)); err != nil {
		return err
	}
	a.userName = args[0]
	fmt.Fprintln(a.out, "Logged in")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.api.SetToken("")
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Connect without a code prints the provider's consent URL; with a code it
// completes the connection.
func (a *App) Connect(ctx context.Context, args []string) error {
	if len(args) == 0 {
		u, err := a.api.AuthorizationURL(ctx, uuid.NewString())
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Open this URL, grant access and run 'connect <code>':\n%s\n", u)
		return nil
	}
	if err := a.api.Connect(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Remote calendar connected")
	return nil
}

func (a *App) Disconnect(ctx context.Context) error {
	if err := a.api.Disconnect(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Remote calendar disconnected")
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	res, err := a.api.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Synced: %d created, %d updated, %d deleted\n", res.Created, res.Updated, res.Deleted)
	return nil
}

func (a *App) Labels(ctx context.Context) error {
	labels, err := a.api.Labels(ctx)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		fmt.Fprintln(a.out, "No labels")
		return nil
	}
	for _, l := range labels {
		var flags []string
		if l.IsDefault {
			flags = append(flags, "default")
		}
		if l.IsFromRemote {
			flags = append(flags, "remote")
		}
		fmt.Fprintf(a.out, "%s  %-24s %s %s\n", l.ID, l.Name, l.Color, strings.Join(flags, ","))
	}
	return nil
}

func (a *App) AddLabel(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("addlabel <name> [color]")
	}
	var color string
	if len(args) == 2 {
		color = args[1]
	}
	l, err := a.api.CreateLabel(ctx, args[0], color)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Label %s created (%s)\n", l.Name, l.ID)
	return nil
}

func (a *App) DeleteLabel(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rmlabel <id>")
	}
	if err := a.api.DeleteLabel(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Label deleted")
	return nil
}

func (a *App) Groups(ctx context.Context) error {
	groups, err := a.api.Groups(ctx)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(a.out, "No groups")
		return nil
	}
	for _, g := range groups {
		fmt.Fprintf(a.out, "%s  %-24s %s\n", g.ID, g.Name, g.Description)
	}
	return nil
}

func (a *App) AddGroup(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("addgroup <name> [description]")
	}
	g, err := a.api.CreateGroup(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Group %s created (%s)\n", g.Name, g.ID)
	return nil
}

// Schedules lists schedules from the start of today for the given number of
// days.
func (a *App) Schedules(ctx context.Context, args []string) error {
	days := defaultScheduleDays
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return usage("schedules [days]")
		}
		days = n
	}

	now := a.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	items, err := a.api.Schedules(ctx, from, from.AddDate(0, 0, days))
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "Nothing scheduled")
		return nil
	}
	for _, s := range items {
		when := s.StartAt.In(now.Location()).Format("Mon 02 Jan 15:04")
		if s.AllDay {
			when = s.StartAt.Format("Mon 02 Jan") + " all day"
		}
		fmt.Fprintf(a.out, "%-22s %s\n", when, s.Title)
	}
	return nil
}
