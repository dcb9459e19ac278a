// Package loader reads raw FHIR payloads from files, byte slices and
// streams into the value mappings the model layer consumes. JSON and
// YAML are supported; the format is resolved from the file extension
// first and sniffed from the content otherwise.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/buger/jsonparser"
	"gopkg.in/yaml.v3"

	fhirmodel "github.com/gofhir/model"
)

// ContentType identifies a supported payload format.
type ContentType string

const (
	ContentTypeJSON    ContentType = "json"
	ContentTypeYAML    ContentType = "yaml"
	ContentTypeUnknown ContentType = ""
)

// DetectContentType resolves the format of a payload. A non-empty
// filename wins when its extension is recognized; otherwise the first
// non-whitespace byte decides, JSON payloads open with '{' or '['.
func DetectContentType(filename string, data []byte) ContentType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return ContentTypeJSON
	case ".yaml", ".yml":
		return ContentTypeYAML
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return ContentTypeUnknown
	}
	switch trimmed[0] {
	case '{', '[':
		return ContentTypeJSON
	}
	// YAML accepts nearly anything; require something that looks like
	// a mapping or a document marker.
	if bytes.HasPrefix(trimmed, []byte("---")) || bytes.ContainsRune(trimmed, ':') {
		return ContentTypeYAML
	}
	return ContentTypeUnknown
}

// PeekResourceType extracts the type tag from a raw JSON payload
// without decoding the whole document. Returns an empty string when
// the payload carries no tag.
func PeekResourceType(data []byte) string {
	s, err := jsonparser.GetString(data, "resourceType")
	if err != nil {
		return ""
	}
	return s
}

// LoadBytes decodes a raw payload into a value mapping. The content
// type is sniffed when ct is unknown. Decode failures come back as a
// *fhirmodel.DecodeError anchored at the synthetic root location.
func LoadBytes(data []byte, ct ContentType) (map[string]any, error) {
	if ct == ContentTypeUnknown {
		ct = DetectContentType("", data)
	}
	switch ct {
	case ContentTypeJSON:
		return decodeJSON(data)
	case ContentTypeYAML:
		return decodeYAML(data)
	default:
		return nil, fhirmodel.NewDecodeError(fmt.Errorf("cannot determine payload format"))
	}
}

// LoadFile reads and decodes a file. The extension decides the format;
// content sniffing covers extensionless files.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fhirmodel.NewDecodeError(err)
	}
	return LoadBytes(data, DetectContentType(path, data))
}

// LoadReader decodes a stream. The whole stream is read first so the
// format can be sniffed.
func LoadReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fhirmodel.NewDecodeError(err)
	}
	return LoadBytes(data, DetectContentType("", data))
}

func decodeJSON(data []byte) (map[string]any, error) {
	unmarshal := fhirmodel.ActiveConfig().Unmarshal
	var out map[string]any
	if err := unmarshal(data, &out); err != nil {
		return nil, fhirmodel.NewDecodeError(err)
	}
	return out, nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fhirmodel.NewDecodeError(err)
	}
	if raw == nil {
		return nil, fhirmodel.NewDecodeError(fmt.Errorf("empty document"))
	}
	return normalizeYAML(raw).(map[string]any), nil
}

// normalizeYAML rewrites the mapping shapes yaml.v3 produces into the
// ones the model layer expects, stringifying non-string keys.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
