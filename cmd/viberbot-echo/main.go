// Command viberbot-echo serves a webhook that greets new users and echoes text
// messages back.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bjaus/viberbot"
	"github.com/bjaus/viberbot/internal/logging"
	glog "github.com/goliatone/go-logger/glog"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}
	logger := logging.NewJSON(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	bot, err := newBot(cfg, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, bot)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "path", cfg.Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newBot wires the echo rules. Rule order matters: the first match wins.
func newBot(cfg config, logger glog.Logger) (*viberbot.Bot, error) {
	bot, err := viberbot.New(viberbot.Config{Token: cfg.Token},
		viberbot.WithLogger(logger),
		viberbot.WithMaxBodyBytes(cfg.MaxBodyBytes),
		viberbot.WithOnSuccess(func(ctx context.Context, ev viberbot.Event, reply viberbot.Entity, d time.Duration) {
			logger.WithContext(ctx).Info("handled", "event", string(ev.Kind()), "replied", reply != nil, "duration", d)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("build bot: %w", err)
	}

	welcome := viberbot.TextMessage{Text: cfg.Welcome}
	bot.
		OnConversation(viberbot.HandlerFunc(func(ctx context.Context, ev viberbot.Event) (viberbot.Entity, error) {
			return welcome, nil
		})).
		OnSubscribe(viberbot.ProcFunc(func(ctx context.Context, ev viberbot.Event) error {
			logger.WithContext(ctx).Info("subscribed", "user", ev.(viberbot.SubscribedEvent).User.ID)
			return nil
		})).
		OnText(`(?i)^\s*ping\s*$`, viberbot.HandlerFunc(func(ctx context.Context, ev viberbot.Event) (viberbot.Entity, error) {
			return viberbot.TextMessage{Text: "pong"}, nil
		})).
		OnText(`.+`, viberbot.HandlerFunc(func(ctx context.Context, ev viberbot.Event) (viberbot.Entity, error) {
			text, _ := ev.(viberbot.MessageEvent).Text()
			return viberbot.TextMessage{Text: text}, nil
		}))
	return bot, nil
}
