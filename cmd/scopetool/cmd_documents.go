package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/quickwritereader/attrscope/factory"
	"github.com/quickwritereader/attrscope/logger"
	"github.com/quickwritereader/attrscope/scope"
	"github.com/quickwritereader/attrscope/tableio"
	"github.com/quickwritereader/attrscope/types"
)

// loadFile decodes path and builds the node tree it describes.
func loadFile(path string) (scope.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, err := tableio.ParseFormat(cfg.Input.Format)
	if err != nil {
		return nil, err
	}
	if format == tableio.FormatAuto {
		format = tableio.FormatForPath(path)
	}
	doc, err := tableio.Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	n, err := tableio.NewReader().Load(cfg.Input.Class, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Log.WithFields(logrus.Fields{
		"file":       path,
		"format":     format,
		"attributes": n.BaseScope().Size(),
	}).Info("document loaded")
	return n, nil
}

func runDump(cmd *cobra.Command, args []string) error {
	n, err := loadFile(args[0])
	if err != nil {
		return err
	}
	printTree(cmd.OutOrStdout(), n.BaseScope(), 0)
	return nil
}

// printTree writes one line per attribute, nesting child scopes.
func printTree(w io.Writer, s *scope.Scope, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, e := range s.Entries() {
		d := &e.Value
		switch d.Type() {
		case types.TypeTable:
			for i, child := range d.Tables() {
				fmt.Fprintf(w, "%s%s[%d] <%s>\n", pad, e.Key, i, child.Node().Class().Name())
				printTree(w, child, depth+1)
			}
		case types.TypePointer:
			fmt.Fprintf(w, "%s%s (pointer)\n", pad, e.Key)
		default:
			fmt.Fprintf(w, "%s%s (%s) = %s\n", pad, e.Key, d.Type(), d.String())
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	n, err := loadFile(in)
	if err != nil {
		return err
	}

	target := outFormat
	if target == "" {
		target = string(tableio.FormatForPath(out))
	}
	format, err := tableio.ParseFormat(target)
	if err != nil {
		return err
	}
	if format == tableio.FormatAuto {
		format = tableio.Format(cfg.Output.Format)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	w := tableio.Writer{Format: format, Indent: cfg.Output.Indent}
	if err := w.Write(f, n.BaseScope()); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", out, format)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		n, err := loadFile(path)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok   %s: %d attributes\n", path, n.BaseScope().Size())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents invalid", failed, len(args))
	}
	return nil
}

func runClasses(cmd *cobra.Command, _ []string) error {
	for _, name := range factory.Scopes.Names() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}
