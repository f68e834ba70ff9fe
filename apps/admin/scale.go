package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
)

// readScaleFile reads a scale file, then decodes it with decodeScale.
func readScaleFile(path string) (ext string, data []byte, err error) {
	ext = strings.ToLower(filepath.Ext(path))
	if ext != ".json" && ext != ".toml" {
		return "", nil, errors.Errorf("unsupported scale file %q: expected .json or .toml", path)
	}
	if data, err = os.ReadFile(path); err != nil {
		return "", nil, errors.Wrap(err, "reading scale file")
	}
	return ext, data, nil
}

// decodeScale decodes a scale file. JSON files hold either `{"grading_system": [...]}` or the bare rule list;
// TOML files hold `[[rules]]` tables.
func decodeScale(ext string, data []byte) (grading.ScaleInput, error) {
	var in grading.ScaleInput
	if ext == ".toml" {
		return in, toml.Unmarshal(data, &in)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return in, json.Unmarshal(trimmed, &in.Rules)
	}
	return in, json.Unmarshal(data, &in)
}

func (cli *commandLine) setScale(schoolID, path string) error {
	ctx := context.Background()
	ext, data, err := readScaleFile(path)
	if err != nil {
		return err
	}
	in, err := decodeScale(ext, data)
	if err != nil {
		if rejErr := cli.gradingSvc.RejectScale(ctx, "", schoolID, err); core.IsNotFound(rejErr) {
			return rejErr
		}
		return errors.Wrap(err, "decoding scale")
	}
	scale, err := cli.gradingSvc.ReplaceScale(ctx, "", schoolID, in)
	if err != nil {
		return describe(err, cli.translator)
	}
	fmt.Fprintf(cli.out, "grading scale of %s replaced (%d rules)\n", schoolID, len(scale))
	return nil
}

func (cli *commandLine) showScale(schoolID string) error {
	scale, configured, err := cli.gradingSvc.Scale(context.Background(), schoolID)
	if err != nil {
		return err
	}
	if !configured {
		fmt.Fprintln(cli.out, "no scale configured, using the default scale")
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GRADE\tMIN\tMAX\tPOINTS\tREMARKS")
	for _, r := range scale {
		remarks := grading.StandardRemark(r.Grade)
		if r.Remarks != nil {
			remarks = *r.Remarks
		}
		fmt.Fprintf(w, "%s\t%g\t%g\t%.2f\t%s\n", r.Grade, r.Min, r.Max, scale.Points(r.Grade), remarks)
	}
	return w.Flush()
}
