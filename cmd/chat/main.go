package main

import (
	"campus-chat/auth"
	"campus-chat/contract"
	"campus-chat/domain"
	"campus-chat/internal"
	"campus-chat/moderation"
	"campus-chat/observability"
	"campus-chat/services"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

// Exit codes to provide meaningful status to the calling shell.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
	exitUsage   = 3
)

var errUsage = errors.New("usage")

func main() {
	code, err := run(os.Args[1:])
	if err != nil && !errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
	}
	os.Exit(code)
}

// app is what every subcommand runs against.
type app struct {
	log      *slog.Logger
	config   internal.Config
	backend  *backend
	identity contract.IdentityResolver
	service  *services.ChatService
	out      io.Writer
}

func run(args []string) (int, error) {
	flags := flag.NewFlagSet("chat", flag.ContinueOnError)
	as := flags.String("as", "", "act as this user id instead of SESSION_TOKEN")
	flags.Usage = func() { usage(flags) }
	if err := flags.Parse(args); err != nil {
		return exitUsage, errUsage
	}
	if flags.NArg() == 0 {
		usage(flags)
		return exitUsage, errUsage
	}
	cmd, ok := commands[flags.Arg(0)]
	if !ok {
		usage(flags)
		return exitUsage, fmt.Errorf("unknown command %q", flags.Arg(0))
	}

	// 1. Configuration & Logger
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return exitConfig, fmt.Errorf(".env error: %w", err)
	}
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Backend
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	b, err := openBackend(ctx, config, log, metrics)
	if err != nil {
		return exitRuntime, err
	}
	defer b.Close()

	// 3. Chat service
	identity := resolveIdentity(log, config, *as)
	chatConfig := services.ChatConfig{MaxContentLength: config.MaxContentLength, SearchLimit: config.SearchLimit}
	if words := moderation.ParseWords(config.ModerationWords); len(words) > 0 {
		replacement, _ := internal.CharacterRune(config.CharReplacement)
		moderator, err := moderation.NewModerator(words, replacement, log)
		if err != nil {
			return exitConfig, fmt.Errorf("moderation error: %w", err)
		}
		chatConfig.Filter = moderator
	}
	service := services.NewChatService(log, identity, b.conversations, b.messages, b.users, b.feed, metrics, chatConfig)

	a := &app{log: log, config: config, backend: b, identity: identity, service: service, out: os.Stdout}
	if err = cmd.run(ctx, a, flags.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "usage: chat %s %s\n", flags.Arg(0), cmd.args)
			return exitUsage, err
		}
		return exitRuntime, err
	}
	return exitOK, nil
}

// resolveIdentity prefers --as, then SESSION_TOKEN. Without either the CLI is signed out.
func resolveIdentity(log *slog.Logger, config internal.Config, as string) contract.IdentityResolver {
	if as != "" {
		return auth.StaticIdentity{Identity: &domain.Identity{ID: domain.UserID(as)}}
	}
	if config.SessionToken != "" {
		session := auth.NewSessionProvider(log, []byte(config.JWTSecret), config.JWTIssuer)
		session.SetToken(config.SessionToken)
		return session
	}
	return auth.StaticIdentity{}
}

func usage(flags *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: chat [--as user] <command> [args]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	for _, name := range commandNames() {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].args)
	}
	fmt.Fprintln(os.Stderr, "\nflags:")
	flags.PrintDefaults()
}
