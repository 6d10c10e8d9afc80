package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/engine/oem"
	"github.com/WessleyAI/wessley-dtc/engine/resolve"
	"github.com/WessleyAI/wessley-dtc/pkg/fn"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newClassifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify CODE...",
		Short: "Normalize and classify codes without any lookup",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := fn.Map(args, dtc.Classify)
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), codes)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INPUT\tCODE\tKIND")
			for _, c := range codes {
				fmt.Fprintf(tw, "%q\t%s\t%s\n", c.Raw, c.Normalized, c.Kind)
			}
			return tw.Flush()
		},
	}
}

func newExtractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [TEXT]",
		Short: "List generic codes mentioned in text (reads stdin without TEXT)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				text = string(b)
			}
			found := fn.Map(dtc.ExtractCodes(text), dtc.ClassifyExtracted)
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), found)
			}
			for _, e := range found {
				mark := " "
				if !e.Found {
					mark = "?"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s\n", mark, e.Code, e.Title)
			}
			return nil
		},
	}
}

func newResolveCmd(opts *options) *cobra.Command {
	var make_ string
	cmd := &cobra.Command{
		Use:   "resolve CODE",
		Short: "Resolve a code to its verified definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := oem.Open(cmd.Context(), opts.store, opts.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			r, err := resolve.New(store, resolve.WithLogger(opts.logger))
			if err != nil {
				return err
			}
			out, err := r.Resolve(cmd.Context(), args[0], make_)
			if err != nil {
				return err
			}
			view := resolve.Describe(out)
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), view)
			}
			w := cmd.OutOrStdout()
			switch o := out.(type) {
			case resolve.Found:
				fmt.Fprintf(w, "%s: %s\n", o.Definition.Code, o.Definition.Title)
				if o.Definition.Description != o.Definition.Title {
					fmt.Fprintf(w, "  %s\n", o.Definition.Description)
				}
				if o.Definition.Source != "" {
					fmt.Fprintf(w, "  source: %s\n", o.Definition.Source)
				}
			case resolve.NeedsMake:
				fmt.Fprintf(w, "%s is manufacturer-specific; pass --make\n", view.Code)
			case resolve.ManufacturerAbsent:
				fmt.Fprintf(w, "%s is not in the %s store\n", view.Code, o.Make)
			case resolve.GenericNotFound:
				fmt.Fprintf(w, "%s is not in the generic reference\n", view.Code)
			case resolve.Unrecognized:
				fmt.Fprintf(w, "%q is not a recognized code\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&make_, "make", "", "vehicle make for manufacturer codes")
	return cmd
}

// curationFile is the YAML layout accepted by load.
type curationFile struct {
	Entries []oem.Entry `yaml:"entries"`
}

func readEntries(r io.Reader) ([]oem.Entry, error) {
	var f curationFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse curation file: %w", err)
	}
	return f.Entries, nil
}

func newLoadCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Insert curated manufacturer definitions; existing (make, code) pairs are left untouched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()
			entries, err := readEntries(fh)
			if err != nil {
				return err
			}

			var invalid []string
			for i, e := range entries {
				if err := e.Normalized().Validate(); err != nil {
					invalid = append(invalid, fmt.Sprintf("entry %d: %v", i+1, err))
				}
			}
			if len(invalid) > 0 {
				return fmt.Errorf("%d invalid entries:\n  %s", len(invalid), strings.Join(invalid, "\n  "))
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d entries valid\n", len(entries))
				return nil
			}

			store, err := oem.Open(cmd.Context(), opts.store, opts.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			created, skipped := 0, 0
			for _, e := range entries {
				ok, err := store.Insert(cmd.Context(), e)
				if err != nil {
					return fmt.Errorf("insert %s %s: %w", e.Make, e.Code, err)
				}
				if ok {
					created++
				} else {
					skipped++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d already present\n", created, skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}
