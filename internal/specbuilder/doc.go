package specbuilder

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Doc is a JSON object edited by path. Keys the builders do not know about are
// carried through untouched, so a spec read from the server can be updated and
// sent back without losing fields.
type Doc struct {
	raw []byte
}

// NewDoc returns a Doc holding raw, or an empty object when raw is empty.
func NewDoc(raw string) Doc {
	if raw == "" {
		raw = "{}"
	}
	return Doc{raw: []byte(raw)}
}

// Set stores v at path.
func (d *Doc) Set(path string, v any) error {
	out, err := sjson.SetBytes(d.bytes(), path, v)
	if err != nil {
		return err
	}
	d.raw = out
	return nil
}

// SetRaw stores raw JSON at path.
func (d *Doc) SetRaw(path, raw string) error {
	out, err := sjson.SetRawBytes(d.bytes(), path, []byte(raw))
	if err != nil {
		return err
	}
	d.raw = out
	return nil
}

// Delete removes path.
func (d *Doc) Delete(path string) error {
	out, err := sjson.DeleteBytes(d.bytes(), path)
	if err != nil {
		return err
	}
	d.raw = out
	return nil
}

// Get evaluates a gjson path.
func (d Doc) Get(path string) gjson.Result {
	return gjson.GetBytes(d.bytes(), path)
}

// Bytes returns the document.
func (d Doc) Bytes() []byte {
	return d.bytes()
}

func (d Doc) String() string {
	return string(d.bytes())
}

func (d Doc) MarshalJSON() ([]byte, error) {
	return d.bytes(), nil
}

func (d *Doc) UnmarshalJSON(data []byte) error {
	d.raw = append([]byte(nil), data...)
	return nil
}

func (d Doc) bytes() []byte {
	if len(d.raw) == 0 {
		return []byte("{}")
	}
	return d.raw
}

// SetStep stores the parameter value at path.
func SetStep(path string) StepFunc[Doc] {
	return func(d *Doc, v any) error {
		return d.Set(path, v)
	}
}

// MergeStep stores every key of a map parameter under path, keeping keys
// already there.
func MergeStep(path string) StepFunc[Doc] {
	return func(d *Doc, v any) error {
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("expected a mapping, got %T", v)
		}
		for k, val := range m {
			if err := d.Set(path+"."+EscapeKey(k), val); err != nil {
				return err
			}
		}
		return nil
	}
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)

// EscapeKey quotes the path metacharacters in a single object key.
func EscapeKey(k string) string {
	return pathEscaper.Replace(k)
}
