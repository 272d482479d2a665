package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialfeed/pkg/feed"
	"socialfeed/pkg/posts"

	"go.uber.org/zap"
)

func main() {
	var (
		addr      string
		username  string
		reconnect time.Duration
	)
	flag.StringVar(&addr, "addr", "http://127.0.0.1:8000", "feed server base url")
	flag.StringVar(&username, "user", "", "highlight reactions of this user")
	flag.DurationVar(&reconnect, "reconnect", 5*time.Second, "delay before reconnecting")
	flag.Parse()

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer zapLogger.Sync() // flushes buffer, if any
	logger := zapLogger.Sugar()

	settings := feed.DefaultClientSettings()
	settings.ReconnectTimeout = reconnect

	client, err := feed.NewClient(addr, feed.Session{Username: username}, settings, logger)
	if err != nil {
		logger.Fatalw("bad server address", "addr", addr, "error", err)
	}

	client.OnReset = func(list []*posts.Post, s feed.Session) {
		fmt.Fprintf(os.Stdout, "== %d posts\n", len(list))
		feed.RenderFeed(os.Stdout, list, s)
	}
	client.OnChange = func(c feed.Change, s feed.Session) {
		feed.RenderChange(os.Stdout, c, s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorw("watch stopped", "error", err)
	}
}
