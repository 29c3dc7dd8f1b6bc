package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Connect(ctx context.Context, args []string) error
	Disconnect(ctx context.Context) error
	Sync(ctx context.Context) error
	Labels(ctx context.Context) error
	AddLabel(ctx context.Context, args []string) error
	DeleteLabel(ctx context.Context, args []string) error
	Groups(ctx context.Context) error
	AddGroup(ctx context.Context, args []string) error
	Schedules(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

var printlnFn = fmt.Println

func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("wh %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: connect [code], disconnect, sync, labels, addlabel <name> [color], rmlabel <id>, groups, addgroup <name> [description], (s)chedules [days], logout, exit")
			} else {
				printlnFn("Available commands: register <user>, login <user>, exit")
			}

		case "register":
			err = a.Register(ctx, args)

		case "login":
			err = a.Login(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			err = runAuthenticated(ctx, a, cmd, args)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

func runAuthenticated(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "connect":
		return a.Connect(ctx, args)
	case "disconnect":
		return a.Disconnect(ctx)
	case "sync":
		return a.Sync(ctx)
	case "labels":
		return a.Labels(ctx)
	case "addlabel":
		return a.AddLabel(ctx, args)
	case "rmlabel":
		return a.DeleteLabel(ctx, args)
	case "groups":
		return a.Groups(ctx)
	case "addgroup":
		return a.AddGroup(ctx, args)
	case "s", "schedules":
		return a.Schedules(ctx, args)
	case "logout":
		return a.Logout(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}
