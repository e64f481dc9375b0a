package main

import (
	"bufio"
	"campus-chat/auth"
	"campus-chat/domain"
	"campus-chat/errors"
	"campus-chat/repositories"
	"campus-chat/services"
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type command struct {
	args string
	run  func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"inbox":     {args: "[-follow]", run: runInbox},
	"messages":  {args: "<conversation>", run: runMessages},
	"send":      {args: "<conversation> <text>", run: runSend},
	"start":     {args: "<user>", run: runStart},
	"search":    {args: "<query>", run: runSearch},
	"read":      {args: "<conversation>", run: runRead},
	"watch":     {args: "<conversation>", run: runWatch},
	"seed-user": {args: "-email <email> [-id <id>] [-first <name>] [-last <name>] [-avatar <path> | -avatar-file <image>]", run: runSeedUser},
	"token":     {args: "<user> <email> [-ttl <duration>]", run: runToken},
	"dump":      {args: "[-prefix <prefix>]", run: runDump},
	"inspect":   {args: "[-port <port>]", run: runInspect},
}

func commandNames() []string {
	names := lo.Keys(commands)
	slices.Sort(names)
	return names
}

// me resolves the signed-in user or fails with ErrUnauthenticated.
func (a *app) me(ctx context.Context) (domain.Identity, error) {
	identity, ok := a.identity.CurrentUser(ctx)
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: pass --as or set SESSION_TOKEN", errors.ErrUnauthenticated)
	}
	return identity, nil
}

func runInbox(ctx context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("inbox", flag.ContinueOnError)
	follow := flags.Bool("follow", false, "keep listening for conversation changes")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	me, err := a.me(ctx)
	if err != nil {
		return err
	}
	if !*follow {
		renderInbox(a.out, me.ID, a.service.GetConversations(ctx))
		return nil
	}

	view := services.NewInboxView(a.log, a.service, func(conversations []domain.Conversation) {
		renderInbox(a.out, me.ID, conversations)
	})
	defer view.Close()
	if err = view.Open(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func runMessages(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if _, err := a.me(ctx); err != nil {
		return err
	}
	renderMessages(a.out, a.service.GetMessages(ctx, domain.ConversationID(args[0])))
	return nil
}

func runSend(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	message, err := a.service.Send(ctx, domain.ConversationID(args[0]), strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", success("sent"), message.ID)
	return nil
}

func runStart(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	conversation, err := a.service.CreateConversation(ctx, domain.UserID(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", success("conversation"), conversation.ID)
	return nil
}

func runSearch(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if _, err := a.me(ctx); err != nil {
		return err
	}
	users, err := a.service.SearchUsers(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	renderUsers(a.out, users)
	return nil
}

func runRead(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if _, err := a.me(ctx); err != nil {
		return err
	}
	a.service.MarkMessagesAsRead(ctx, domain.ConversationID(args[0]))
	fmt.Fprintln(a.out, success("read"))
	return nil
}

// runWatch follows a conversation live and sends every line typed on stdin.
func runWatch(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	var (
		mu      sync.Mutex
		printed = make(map[domain.MessageID]struct{})
	)
	onChange := func(messages []domain.Message) {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range messages {
			if m.IsOptimistic() {
				continue
			}
			if _, ok := printed[m.ID]; ok {
				continue
			}
			printed[m.ID] = struct{}{}
			fmt.Fprintln(a.out, formatMessage(m))
		}
	}

	view := services.NewConversationView(a.log, a.service, a.identity, domain.ConversationID(args[0]), a.config.EchoWindow, onChange)
	defer view.Close()
	if err := view.Open(ctx); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := view.Send(ctx, line); err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", failure("not sent"), err)
			}
		}
	}
}

func runSeedUser(ctx context.Context, a *app, args []string) error {
	flags := flag.NewFlagSet("seed-user", flag.ContinueOnError)
	id := flags.String("id", "", "user id, a new uuid when empty")
	first := flags.String("first", "", "first name")
	last := flags.String("last", "", "last name")
	email := flags.String("email", "", "email address")
	avatar := flags.String("avatar", "", "avatar path in the avatar bucket")
	avatarFile := flags.String("avatar-file", "", "local image uploaded as the avatar")
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" {
		return errUsage
	}
	user := repositories.User{
		ID:         lo.Ternary(*id == "", uuid.NewString(), *id),
		FirstName:  *first,
		LastName:   *last,
		Email:      *email,
		AvatarPath: *avatar,
	}
	if *avatarFile != "" {
		key, err := a.backend.avatars.Upload(ctx, user.ID, *avatarFile)
		if err != nil {
			return err
		}
		user.AvatarPath = key
	}
	if err := a.backend.userRepo.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	fmt.Fprintf(a.out, "%s %s\n", success("user"), user.ID)
	return nil
}

func runToken(_ context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	flags := flag.NewFlagSet("token", flag.ContinueOnError)
	ttl := flags.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := flags.Parse(args[2:]); err != nil {
		return errUsage
	}
	if a.config.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required to mint a session token")
	}
	identity := domain.Identity{ID: domain.UserID(args[0]), Email: args[1]}
	token, err := auth.GenerateToken([]byte(a.config.JWTSecret), a.config.JWTIssuer, identity, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}
