package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-formsync"
	"github.com/goliatone/go-formsync/internal/config"
	"github.com/goliatone/go-formsync/internal/logger"
	"github.com/goliatone/go-formsync/pkg/analytics"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/stream"
)

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("watch", stderr, "watch [-transport sse|websocket|redis] <form-id>")
	transport := fs.String("transport", "", "override FORMSYNC_STREAM_TRANSPORT")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	formID := fs.Arg(0)

	cfg, client, err := connect()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *transport != "" {
		cfg.Stream.Transport = strings.ToLower(*transport)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	feed := formsync.FeedConfig{Transport: cfg.Stream.Transport}
	if cfg.Stream.Transport == config.TransportRedis {
		opts, err := redis.ParseURL(cfg.Stream.RedisURL)
		if err != nil {
			fmt.Fprintf(stderr, "parse redis url: %v\n", err)
			return 1
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		feed.Redis = rdb
	}

	log := logger.Component(nil, "analytics")
	syncer, err := formsync.NewSynchronizer(client, feed,
		analytics.WithLogger(log),
		analytics.WithStreamOptions(
			stream.WithPolicy(stream.Policy{Base: cfg.Stream.RetryBase, Cap: cfg.Stream.RetryCap}),
			stream.WithLogger(logger.Component(nil, "stream")),
		),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer syncer.Close()

	syncer.Activate(ctx, formID)
	fmt.Fprintf(stdout, "watching %s over %s (ctrl-c to stop)\n", formID, cfg.Stream.Transport)

	for {
		select {
		case <-ctx.Done():
			return 0
		case <-syncer.Changes():
			snapshot, ok := syncer.Snapshot()
			printSnapshot(stdout, syncer.Status(), snapshot, ok)
		}
	}
}

func printSnapshot(w io.Writer, status analytics.Status, snapshot model.AnalyticsSnapshot, ok bool) {
	if !ok {
		fmt.Fprintf(w, "[%s] no data yet\n", status)
		return
	}
	fmt.Fprintf(w, "[%s] %d response(s), updated %s\n", status, snapshot.TotalResponses, snapshot.UpdatedAt.Format("15:04:05"))
	for _, field := range snapshot.Fields {
		switch data := field.Data.(type) {
		case model.TextAnalytics:
			terms := make([]string, 0, len(data.TopTerms))
			for _, t := range data.TopTerms {
				terms = append(terms, fmt.Sprintf("%s(%d)", t.Term, t.Count))
			}
			fmt.Fprintf(w, "  %s  top terms: %s\n", field.FieldID, strings.Join(terms, ", "))
		case model.MultipleAnalytics:
			fmt.Fprintf(w, "  %s  %s\n", field.FieldID, segments(analytics.Stacked(data.Distribution)))
		case model.CheckboxAnalytics:
			fmt.Fprintf(w, "  %s  %s\n", field.FieldID, segments(analytics.Stacked(data.Distribution)))
		case model.RatingAnalytics:
			fmt.Fprintf(w, "  %s  avg %.2f over %d rating(s)\n", field.FieldID, data.Avg, analytics.Total(data.Histogram))
		}
	}
}

func segments(parts []analytics.Segment) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, fmt.Sprintf("%s %d (%.0f%%)", p.OptionID, p.Count, p.WidthPct))
	}
	return strings.Join(out, " | ")
}
