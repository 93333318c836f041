package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khoslavarun/QuoteBuilder/internal/export"
	"github.com/khoslavarun/QuoteBuilder/internal/quote"
)

func newCalcCmd() *cobra.Command {
	var (
		inputFile string
		format    string
		outFile   string
		title     string
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate a quote from a YAML or JSON inputs file",
		Example: `  quotectl calc -f inputs.yaml
  quotectl calc -f inputs.json --format xlsx -o quote.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInputs(inputFile)
			if err != nil {
				return err
			}

			out, err := quote.Calculate(in)
			if err != nil {
				return err
			}

			if outFile == "" {
				return writeResult(cmd.OutOrStdout(), format, title, in, out)
			}
			err = writeOutput(outFile, func(w io.Writer) error {
				return writeResult(w, format, title, in, out)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "inputs file (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json, csv, xlsx, md or html")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&title, "title", "Quote", "report title for md, html and xlsx output")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// writeOutput creates path and hands it to write. A failed close is returned.
func writeOutput(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

// readInputs decodes an inputs file using the same field names as the API.
func readInputs(path string) (quote.Inputs, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return quote.Inputs{}, fmt.Errorf("read inputs %s: %w", path, err)
	}

	var in quote.Inputs
	err := v.Unmarshal(&in, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "json"
		dc.ErrorUnused = true
	})
	if err != nil {
		return quote.Inputs{}, fmt.Errorf("decode inputs %s: %w", path, err)
	}
	return in, nil
}

func writeResult(w io.Writer, format, title string, in quote.Inputs, out quote.Output) error {
	if strings.EqualFold(format, "json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	return export.Write(w, f, export.Report{Title: title, Inputs: &in, Output: out})
}
