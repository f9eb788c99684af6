package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github/itish2003/resultdocs/report"
)

var errValidationFailed = errors.New("validation failed")

var unsafeNameChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")

func (a *app) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file|->",
		Short: "Print the documents of a bundle as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			docs, err := report.Documents(report.ParseBundle(stream, a.inputSeparator(stream)))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		},
	}
}

func (a *app) splitCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "split <file|->",
		Short: "Write each document of a bundle to its own file",
		Long: `Splits a bundle on its separator and writes every non-blank part to
<out>/NN-<name>.md, where name comes from the document heading.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			n := 0
			for _, entry := range report.ParseBundle(stream, a.inputSeparator(stream)) {
				n++
				name := "part"
				if entry.Err == nil && entry.Document.Name != "" {
					name = unsafeNameChars.Replace(entry.Document.Name)
				} else if entry.Err != nil {
					a.logger.Warn("writing unparseable part as-is", zap.Int("index", entry.Index), zap.Error(entry.Err))
				}
				path := filepath.Join(outDir, fmt.Sprintf("%02d-%s.md", n, name))
				if err := os.WriteFile(path, []byte(withTrailingNewline(strings.TrimLeft(entry.Raw, "\r\n"))), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			if n == 0 {
				return errors.New("no documents found")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func (a *app) joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <file>...",
		Short: "Join report files into one bundle on standard output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parts := make([]string, 0, len(args))
			for _, path := range args {
				content, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				if strings.TrimSpace(content) == "" {
					continue
				}
				parts = append(parts, withTrailingNewline(content))
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), report.Join(parts, a.outputSeparator()+"\n"))
			return err
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <file|->...",
		Short: "Check report files and list problems per document",
		Long: `Parses every document in the given files and prints its issues.
Exits non-zero when a document fails to parse or has error-level issues, or
with --strict, any issue at all.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := false
			for _, path := range args {
				stream, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				entries := report.ParseBundle(stream, a.inputSeparator(stream))
				if len(entries) == 0 {
					fmt.Fprintf(out, "%s: no documents found\n", path)
					failed = true
					continue
				}
				for _, entry := range entries {
					label := fmt.Sprintf("%s#%d", path, entry.Index)
					if entry.Err != nil {
						fmt.Fprintf(out, "%s: %v\n", label, entry.Err)
						failed = true
						continue
					}
					issues := report.Validate(entry.Document)
					if len(issues) == 0 {
						fmt.Fprintf(out, "%s %s: ok\n", label, entry.Document.Name)
						continue
					}
					for _, issue := range issues {
						fmt.Fprintf(out, "%s %s: %s\n", label, entry.Document.Name, issue)
					}
					if report.HasErrors(issues) || strict {
						failed = true
					}
				}
			}
			if failed {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")
	return cmd
}

func (a *app) renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <file.json|->",
		Short: "Render documents given as JSON into a markdown bundle",
		Long: `Reads one document object or an array of them, in the form printed by
parse, and writes the markdown bundle to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			docs, err := decodeDocuments([]byte(data))
			if err != nil {
				return err
			}
			markdown, err := report.RenderBundle(docs, a.outputSeparator(), a.renderOptions())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), markdown)
			return err
		},
	}
}

func decodeDocuments(data []byte) ([]report.ResultDocument, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var docs []report.ResultDocument
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
		return docs, nil
	}
	var doc report.ResultDocument
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return []report.ResultDocument{doc}, nil
}
