package cli

import (
	"fmt"
	"io"
	"strings"

	jsonitor "github.com/json-iterator/go"
	"github.com/prismctl/prismctl/internal/driver"
	"sigs.k8s.io/yaml"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// printData writes v in the selected output format, JSON by default.
func printData(w io.Writer, v any) error {
	return printAs(w, opts.output, v)
}

// printAs writes v as indented JSON, or as YAML when format is "yaml".
func printAs(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if format == "yaml" {
		data, err = yaml.JSONToYAML(data)
		if err != nil {
			return fmt.Errorf("failed to convert to YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printResponse prints the response of a successful read, as YAML unless
// another format was asked for. Failures are printed as records.
func printResponse(w io.Writer, label string, r *driver.Result) error {
	if r.Failed || opts.output != "" {
		return printResults(w, label, []*driver.Result{r})
	}
	if len(r.Response) == 0 {
		return nil
	}
	return printAs(w, "yaml", r.Response)
}

// printResults prints one record per invocation and returns ErrAlreadyHandled
// when any of them failed.
func printResults(w io.Writer, label string, results []*driver.Result) error {
	failed := false
	for _, r := range results {
		failed = failed || r.Failed
	}

	if opts.output != "" {
		var v any = results
		if len(results) == 1 {
			v = results[0]
		}
		if err := printData(w, v); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			printSummary(w, label, r)
		}
	}
	if failed {
		return ErrAlreadyHandled
	}
	return nil
}

func printSummary(w io.Writer, label string, r *driver.Result) {
	var parts []string
	if r.UUID != "" {
		parts = append(parts, r.UUIDKey+"="+r.UUID)
	}
	if r.TaskUUID != "" {
		parts = append(parts, "task_uuid="+r.TaskUUID)
	}
	detail := strings.Join(parts, " ")

	switch {
	case r.Failed:
		errorLabel.Fprintf(w, "[ERROR] ")
		fmt.Fprintf(w, "%s: %s\n", label, r.Msg)
	case r.Changed:
		okLabel.Fprintf(w, "[CHANGED] ")
		fmt.Fprintf(w, "%s %s\n", label, detail)
	default:
		msg := r.Msg
		if msg == "" {
			msg = "ok"
		}
		skipLabel.Fprintf(w, "[OK] ")
		fmt.Fprintf(w, "%s %s %s\n", label, msg, detail)
	}
}
