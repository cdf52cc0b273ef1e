package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"novelchat/apperrors"
	"novelchat/config"
	infraredis "novelchat/infrastructure/redis"
	"novelchat/pkg/logger"
	"novelchat/pkg/metrics"
	"novelchat/pkg/wire"
	"novelchat/services/api"
	"novelchat/services/chat"
	"novelchat/services/conversation"
	"novelchat/services/sessions"
	"novelchat/services/transport"
	"novelchat/services/uploads"
	"novelchat/utils"

	"github.com/joho/godotenv"
)

type options struct {
	username      string
	password      string
	to            string
	listUsers     bool
	conversations bool
	summary       bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.username, "user", "", "username to log in as")
	flag.StringVar(&o.password, "password", "", "password (defaults to $CHAT_PASSWORD; empty resumes a saved session)")
	flag.StringVar(&o.to, "to", "", "user id for a private chat; omit for the group room")
	flag.BoolVar(&o.listUsers, "users", false, "list users and exit")
	flag.BoolVar(&o.conversations, "conversations", false, "list private conversations and exit")
	flag.BoolVar(&o.summary, "config", false, "print the configuration summary on start")
	flag.Parse()

	if o.password == "" {
		o.password = os.Getenv("CHAT_PASSWORD")
	}
	return o
}

func main() {
	if err := run(parseFlags()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(apperrors.Notice(err)))
		log.Fatalf("chat failed: %v", err)
	}
}

func run(opts options) error {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: .env file not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.summary {
		cfg.PrintSummary()
	}

	// chat output owns the terminal, logs go to the file
	lg := logger.New(cfg.Log.File, logger.ParseLevel(cfg.Log.Level))
	defer lg.Close()
	logger.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Address != "" {
		msrv := metrics.NewServer()
		addr, err := msrv.Start(cfg.Metrics.Address)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer msrv.Shutdown()
		logger.WithField("addr", addr).Info("Metrics server started")
	}

	client := api.NewClient(cfg.API)
	store := newSessionStore(ctx, cfg)
	logger.WithField("store", storeSummary(store)).Info("Session store ready")
	if opts.summary {
		fmt.Printf("  Session store: %s\n", storeSummary(store))
	}
	provider := sessions.NewProvider(client, store)

	session, err := authenticate(ctx, provider, opts)
	if err != nil {
		return err
	}
	client.SetToken(session.Token)
	fmt.Println(headerStyle.Render("Signed in as " + session.DisplayName()))

	switch {
	case opts.listUsers:
		users, err := client.Users(ctx, session.UserID)
		if err != nil {
			return err
		}
		fmt.Println(renderUsers(users))
		return nil
	case opts.conversations:
		convs, err := client.Conversations(ctx, session.UserID)
		if err != nil {
			return err
		}
		fmt.Println(renderConversations(convs))
		return nil
	}

	scope := conversation.Group()
	if opts.to != "" {
		peer, err := wire.ParseID(opts.to)
		if err != nil || peer == 0 {
			return apperrors.NewValidationError("-to must be a user id").WithDetails("value", opts.to)
		}
		scope = conversation.Private(session.UserID, peer)
	}

	return chatLoop(ctx, cfg, client, session, scope)
}

func newSessionStore(ctx context.Context, cfg *config.Config) sessions.Store {
	if cfg.Redis.Address == "" {
		return sessions.NewMemoryStore(cfg.Session.CacheSize, cfg.Session.TTL)
	}

	rdb, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, sessions stay in memory")
		return sessions.NewMemoryStore(cfg.Session.CacheSize, cfg.Session.TTL)
	}
	if err := metrics.RegisterRedisPool(rdb); err != nil {
		logger.WithError(err).Warn("Redis pool metrics not registered")
	}
	return sessions.NewRedisStore(rdb, cfg.Session.TTL, cfg.Session.CacheSize)
}

func storeSummary(store sessions.Store) string {
	switch s := store.(type) {
	case *sessions.RedisStore:
		return "redis (breaker " + s.BreakerState() + ")"
	case *sessions.MemoryStore:
		return fmt.Sprintf("memory (%d cached)", s.Len())
	default:
		return "unknown"
	}
}

func authenticate(ctx context.Context, provider *sessions.Provider, opts options) (sessions.Session, error) {
	if opts.username == "" {
		return sessions.Session{}, apperrors.NewValidationError("-user is required")
	}
	if opts.password == "" {
		return provider.Resume(ctx, opts.username)
	}
	return provider.Login(ctx, opts.username, opts.password)
}

func chatLoop(ctx context.Context, cfg *config.Config, client *api.Client, session sessions.Session, scope conversation.Scope) error {
	channel := transport.New(cfg.Transport, nil)
	view, err := chat.Open(ctx, session, scope, channel, client, cfg.History)
	if err != nil {
		channel.Close()
		return err
	}
	defer view.Close()

	uploader := uploads.NewUploader(client, cfg.Upload)

	fmt.Println(headerStyle.Render("Chat: " + scope.Label() + " " + scope.String()))
	fmt.Println(mutedStyle.Render(helpText))

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-view.Events():
			if !ok {
				return nil
			}
			handleEvent(ctx, client, view, e)

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(ctx, view, uploader, line)
			if err != nil {
				fmt.Println(errorStyle.Render(apperrors.Notice(err)))
			}
			if quit {
				return nil
			}
		}
	}
}

func readLines(f *os.File, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		out <- scanner.Text()
	}
}

func handleEvent(ctx context.Context, client *api.Client, view *chat.View, e chat.Event) {
	self := view.Session().UserID

	switch e.Kind {
	case chat.EventHistorySeeded:
		for _, m := range e.Messages {
			fmt.Println(renderMessage(m, self))
		}
		fmt.Println(mutedStyle.Render(fmt.Sprintf("── %d messages ──", e.Count)))
		markRead(ctx, client, view)
	case chat.EventMessage:
		fmt.Println(renderMessage(e.Message, self))
		if e.Message.SenderID != self {
			markRead(ctx, client, view)
		}
	case chat.EventHistoryFailed:
		fmt.Println(errorStyle.Render("History unavailable: " + apperrors.Notice(e.Err)))
	case chat.EventStateChanged:
		fmt.Println(renderState(e.State))
	case chat.EventDecodeDropped:
		// logged by the view
	}
}

func markRead(ctx context.Context, client *api.Client, view *chat.View) {
	scope := view.Scope()
	if scope.IsGroup() {
		return
	}
	if err := client.MarkAsRead(ctx, scope.Self(), scope.Peer()); err != nil {
		logger.WithError(err).Debug("Mark as read failed")
	}
}

const helpText = "Type to send. /emoji <n|char>  /image <path>  /file <path>  /help  /quit"

var emojiPalette = []string{"😀", "😂", "😍", "👍", "🙏", "🎉", "❤️", "😢", "😮", "🔥"}

// handleLine runs one input line. It reports whether the user asked to quit.
func handleLine(ctx context.Context, view *chat.View, uploader *uploads.Uploader, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Println(mutedStyle.Render(helpText))
		fmt.Println(mutedStyle.Render(renderPalette(emojiPalette)))
		return false, nil
	case "/emoji":
		emoji, err := pickEmoji(arg)
		if err != nil {
			return false, err
		}
		return false, view.SendEmoji(emoji)
	case "/image":
		att, err := uploader.PrepareImage(ctx, arg)
		if err != nil {
			return false, err
		}
		return false, view.SendAttachment(att)
	case "/file":
		att, err := uploader.PrepareFile(ctx, arg)
		if err != nil {
			return false, err
		}
		return false, view.SendAttachment(att)
	}

	if appErr := utils.ValidateContent(line); appErr != nil {
		return false, appErr
	}
	return false, view.SendText(line)
}

// pickEmoji accepts a palette index (1-based) or the emoji itself.
func pickEmoji(arg string) (string, error) {
	if arg == "" {
		return "", apperrors.NewValidationError("Usage: /emoji <n|char>")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(emojiPalette) {
			return "", apperrors.NewValidationErrorf("Emoji number must be between 1 and %d", len(emojiPalette))
		}
		return emojiPalette[n-1], nil
	}
	return arg, nil
}
