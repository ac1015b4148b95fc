package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Document is one invocation read from a parameter file.
type Document struct {
	// Resource is the document's "resource" key, removed from Params.
	Resource string
	Params   map[string]any
}

// ParseParamsFile reads filename, expands {{ .ENV.NAME }} placeholders and
// splits it into documents.
func ParseParamsFile(filename string) ([]Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data, err = ExpandEnv(data, environ())
	if err != nil {
		return nil, err
	}
	return ParseParams(data)
}

// ParseParams decodes every non-empty YAML document of data.
func ParseParams(data []byte) ([]Document, error) {
	data = bytes.ReplaceAll(data, []byte("\t"), []byte("    "))
	content := strings.TrimSpace(string(data))
	if content == "" || strings.Trim(content, "- \n\t") == "" {
		return []Document{}, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var docs []Document
	for {
		var params map[string]any
		if err := decoder.Decode(&params); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		if len(params) == 0 {
			continue
		}
		doc := Document{Params: params}
		if r, ok := params["resource"]; ok {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("document %d: resource must be a string", len(docs)+1)
			}
			doc.Resource = s
			delete(params, "resource")
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type templateContext struct {
	ENV map[string]string
}

var missingKeyRegex = regexp.MustCompile(`map has no entry for key "(.*?)"`)

// ExpandEnv replaces {{ .ENV.NAME }} placeholders with values from env. A
// placeholder without a value is an error.
func ExpandEnv(input []byte, env map[string]string) ([]byte, error) {
	tmpl, err := template.New("params").Option("missingkey=error").Parse(string(input))
	if err != nil {
		return nil, fmt.Errorf("template error: %w", err)
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, templateContext{ENV: env}); err != nil {
		if m := missingKeyRegex.FindStringSubmatch(err.Error()); len(m) == 2 {
			return nil, fmt.Errorf("missing environment variable: %s (set it in your shell or .env file)", m[1])
		}
		return nil, fmt.Errorf("template error: %w", err)
	}
	return out.Bytes(), nil
}

func environ() map[string]string {
	env := map[string]string{}
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}
	return env
}
