// Package envfile reads and writes the KEY=value text format consumed by
// whitelabel.sh.
package envfile

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// ReadError reports that an env source could not be read. It is never
// returned for malformed content: unparseable lines are skipped.
type ReadError struct {
	Path string // empty when reading from a stream
	Err  error
}

func (e *ReadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("reading env: %v", e.Err)
	}
	return fmt.Sprintf("reading env %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Pair is one KEY=value entry in serialization order.
type Pair struct {
	Key   string
	Value string
}

// Parse parses env text into a key/value map. Later duplicates win.
//
// Only lines whose trimmed form starts with '#' are comments; a '#' inside
// a value is kept as part of the value.
func Parse(text string) map[string]string {
	values := make(map[string]string)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		if key == "" {
			continue
		}
		values[key] = unquote(strings.TrimSpace(line[eq+1:]))
	}
	return values
}

// unquote strips one matching pair of outer quotes. Escapes are only
// processed inside double quotes.
func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if first != last || (first != '"' && first != '\'') {
		return value
	}
	inner := value[1 : len(value)-1]
	if first == '\'' {
		return inner
	}
	inner = strings.ReplaceAll(inner, `\\`, `\`)
	return strings.ReplaceAll(inner, `\"`, `"`)
}

// ParseReader reads r to the end and parses it.
func ParseReader(r io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ReadError{Err: err}
	}
	return Parse(string(data)), nil
}

// Load reads and parses the env file at path.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return Parse(string(data)), nil
}

// Serialize renders values in the order given by keys. Keys missing from
// values are written with an empty value. The result has no trailing newline.
func Serialize(values map[string]string, keys []string) string {
	pairs := make([]Pair, len(keys))
	for i, k := range keys {
		pairs[i] = Pair{Key: k, Value: values[k]}
	}
	return SerializePairs(pairs)
}

// SerializePairs renders pairs one per line.
func SerializePairs(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(FormatValue(p.Value))
	}
	return b.String()
}

// FormatValue escapes and, when needed, double-quotes a single value.
// Blank values become the empty string.
func FormatValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	if needsQuotes(value) {
		return `"` + escaped + `"`
	}
	return escaped
}

func needsQuotes(value string) bool {
	return strings.ContainsAny(value, "#\"'=") || strings.ContainsFunc(value, unicode.IsSpace)
}
