package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/goliatone/go-formsync"
	"github.com/goliatone/go-formsync/pkg/renderers/tui"
)

func runFill(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("fill", stderr, "fill [-attempts n] <slug>")
	attempts := fs.Int("attempts", 0, "give up on a field after n invalid answers (0 retries forever)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	slug := fs.Arg(0)

	_, client, err := connect()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	session := formsync.NewResponder(client)
	schema, err := session.Load(ctx, slug)
	if err != nil {
		fmt.Fprintf(stderr, "load form %q: %v\n", slug, err)
		return 1
	}

	renderer := tui.New(tui.WithMaxAttempts(*attempts), tui.WithTheme(tui.Theme{ErrorPrefix: "✗ "}))
	answers, err := renderer.Fill(ctx, schema)
	if err != nil {
		if errors.Is(err, tui.ErrAborted) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(stderr, "aborted")
			return 130
		}
		fmt.Fprintf(stderr, "fill form: %v\n", err)
		return 1
	}
	for _, answer := range answers {
		session.SetAnswer(answer.FieldID, answer.Value)
	}

	errs, err := session.Submit(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "submit: %v\n", err)
		return 1
	}
	if len(errs) > 0 {
		ids := make([]string, 0, len(errs))
		for id := range errs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(stderr, "%s: %s\n", id, errs[id])
		}
		return 1
	}
	fmt.Fprintln(stdout, "Thanks! Your response has been recorded.")
	return 0
}
