package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goliatone/go-formsync"
	"github.com/goliatone/go-formsync/pkg/validation"
)

type violation struct {
	file string
	validation.Violation
}

func runLint(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("lint", stderr, "lint [-quiet] <files...>")
	quiet := fs.Bool("quiet", false, "only report problems")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	paths := fs.Args()
	if len(paths) == 0 {
		fs.Usage()
		return 2
	}

	var violations []violation
	for _, path := range paths {
		linted, err := lintFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "lint %s: %v\n", path, err)
			return 1
		}
		violations = append(violations, linted...)
	}

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			return violations[i].file < violations[j].file
		})
		for _, v := range violations {
			fmt.Fprintf(stderr, "%s: %s -> %s\n", v.file, v.FieldID, v.Message)
		}
		return 1
	}
	if !*quiet {
		fmt.Fprintf(stdout, "%d file(s) ok\n", len(paths))
	}
	return 0
}

func lintFile(path string) ([]violation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	schema, err := formsync.DecodeSchema(raw)
	if err != nil {
		return nil, err
	}

	var out []violation
	for _, v := range formsync.ValidateSchema(schema) {
		out = append(out, violation{file: path, Violation: v})
	}
	return out, nil
}
