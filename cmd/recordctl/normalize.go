package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"record-gateway/internal/serdes"
)

func newNormalizeCmd() *cobra.Command {
	var vhost, app string

	cmd := &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Print the status document a request body decodes to",
		Long: `Decode a start or stop request body and print the status document the
gateway would report for it before the recording starts.

Example:
  recordctl normalize start.json --vhost default --app live
  cat start.json | recordctl normalize -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			data, err := readInput(cmd.InOrStdin(), src)
			if err != nil {
				return err
			}
			out, err := normalize(data, vhost, app)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", out)
			return err
		},
	}
	cmd.Flags().StringVar(&vhost, "vhost", "default", "vhost to place the record in")
	cmd.Flags().StringVar(&app, "app", "app", "application to place the record in")
	return cmd
}

func readInput(stdin io.Reader, src string) ([]byte, error) {
	if src == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return data, nil
}

// normalize decodes data as a record request and returns the indented
// status document for it.
func normalize(data []byte, vhost, app string) ([]byte, error) {
	v, err := serdes.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, errors.New("request body must be a JSON object")
	}
	rec := serdes.RecordFromJSON(v)
	rec.Place(vhost, app)
	return json.MarshalIndent(serdes.JSONFromRecord(rec), "", "  ")
}
