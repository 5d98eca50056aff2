package notetext

import (
	"strconv"
	"strings"

	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/tidwall/gjson"
)

// Extractor projects a note to the text that is fingerprinted and embedded.
// The projection must be deterministic so that staleness checks compare the
// same text that was embedded.
type Extractor interface {
	ExtractText(note *model.Note) string
}

type extractor struct{}

// New creates the default Extractor
func New() Extractor {
	return &extractor{}
}

// ExtractText renders the note output. A JSON string yields its value; objects
// and arrays are walked in document order and every scalar leaf becomes a
// "path: value" line. Payloads that are not valid JSON are used as-is.
func (x *extractor) ExtractText(note *model.Note) string {
	if note == nil || len(note.Output) == 0 {
		return ""
	}

	raw := note.Output
	if !gjson.ValidBytes(raw) {
		return normalize(string(raw))
	}

	root := gjson.ParseBytes(raw)
	if !root.IsObject() && !root.IsArray() {
		return normalize(scalar(root))
	}

	var lines []string
	walk(root, "", &lines)
	return normalize(strings.Join(lines, "\n"))
}

func walk(v gjson.Result, path string, lines *[]string) {
	switch {
	case v.IsObject():
		v.ForEach(func(key, value gjson.Result) bool {
			walk(value, join(path, key.String()), lines)
			return true
		})
	case v.IsArray():
		idx := 0
		v.ForEach(func(_, value gjson.Result) bool {
			walk(value, join(path, strconv.Itoa(idx)), lines)
			idx++
			return true
		})
	case v.Type == gjson.Null:
		// nulls carry no clinical text
	default:
		s := scalar(v)
		if strings.TrimSpace(s) == "" {
			return
		}
		if path == "" {
			*lines = append(*lines, s)
			return
		}
		*lines = append(*lines, path+": "+s)
	}
}

func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Number, gjson.True, gjson.False:
		return v.Raw
	default:
		return ""
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
