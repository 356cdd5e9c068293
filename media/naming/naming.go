// Package naming resolves output path patterns such as
// "{base}_{width}x{height}.{ext}" against per-image tokens.
package naming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultPattern is used when neither the descriptor nor the configuration
// names one.
const DefaultPattern = "{base}_{width}x{height}.{ext}"

// Tokens are the values a pattern can reference.
type Tokens struct {
	Base   string
	Ext    string
	Width  int
	Height int
	Format string
	Preset string
	Index  int
	Hash   string
	Date   string
}

func (t Tokens) lookup(name string) (string, bool) {
	switch name {
	case "base":
		return t.Base, true
	case "ext":
		return t.Ext, true
	case "width":
		return strconv.Itoa(t.Width), true
	case "height":
		return strconv.Itoa(t.Height), true
	case "format":
		return t.Format, true
	case "preset":
		return t.Preset, true
	case "index":
		return strconv.Itoa(t.Index), true
	case "hash":
		return t.Hash, true
	case "date":
		return t.Date, true
	}
	return "", false
}

// Resolve substitutes every known {placeholder} in pattern. Unknown
// placeholders and unbalanced braces are copied through unchanged.
func Resolve(pattern string, tokens Tokens) string {
	if pattern == "" {
		pattern = DefaultPattern
	}

	var b strings.Builder
	b.Grow(len(pattern) + 16)

	for {
		open := strings.IndexByte(pattern, '{')
		if open < 0 {
			b.WriteString(pattern)
			break
		}
		end := strings.IndexByte(pattern[open:], '}')
		if end < 0 {
			b.WriteString(pattern)
			break
		}
		end += open

		name := pattern[open+1 : end]
		// A nested '{' starts a new candidate placeholder.
		if nested := strings.LastIndexByte(name, '{'); nested >= 0 {
			b.WriteString(pattern[:open+1+nested])
			pattern = pattern[open+1+nested:]
			continue
		}

		b.WriteString(pattern[:open])
		if value, ok := tokens.lookup(name); ok {
			b.WriteString(value)
		} else {
			b.WriteString(pattern[open : end+1])
		}
		pattern = pattern[end+1:]
	}

	return b.String()
}

// BaseName returns the input file name without directory and extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Hash returns the first 12 hex digits of the xxhash64 of data.
func Hash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))[:12]
}

// Date formats t as YYYYMMDD.
func Date(t time.Time) string {
	return t.Format("20060102")
}
