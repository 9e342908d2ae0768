package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tgbatch/internal/config"
	"tgbatch/internal/telegram"
	"tgbatch/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	notify := flag.String("notify", "", "send this text to every chat in -chats")
	chats := flag.String("chats", "", "comma-separated chat ids for -notify")
	call := flag.String("call", "", "Bot API method to call")
	params := flag.String("params", "", "comma-separated key=value parameters for -call")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info().
		Str("config", *configPath).
		Str("baseUrl", cfg.BaseURL).
		Msg("starting tgbatch")

	client, err := telegram.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	out, err := run(ctx, client, *notify, *chats, *call, *params)
	stop()
	client.Close()
	if err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal().Err(err).Msg("failed to write output")
	}
}

func run(ctx context.Context, client *telegram.Client, notify, chats, call, params string) (any, error) {
	switch {
	case notify != "":
		ids, err := parseChats(chats)
		if err != nil {
			return nil, err
		}
		return client.Notify(ctx, ids, notify, nil)
	case call != "":
		p, err := parseParams(params)
		if err != nil {
			return nil, err
		}
		return client.Call(ctx, call, p)
	default:
		return nil, errors.New("nothing to do: pass -notify or -call")
	}
}

// parseChats parses "1,-1002,3"
func parseChats(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("-chats is required with -notify")
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseParams parses "chat_id=1,text=hi". Values stay strings.
func parseParams(s string) (transport.Params, error) {
	p := transport.Params{}
	if strings.TrimSpace(s) == "" {
		return p, nil
	}
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		p[key] = value
	}
	return p, nil
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// stdout carries the JSON result
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
