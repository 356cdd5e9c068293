package naming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleTokens() Tokens {
	return Tokens{
		Base:   "IMG_0001",
		Ext:    "jpg",
		Width:  1024,
		Height: 768,
		Format: "jpg",
		Preset: "web",
		Index:  3,
		Hash:   "0123456789ab",
		Date:   "20261018",
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"default", "", "IMG_0001_1024x768.jpg"},
		{"explicit default", DefaultPattern, "IMG_0001_1024x768.jpg"},
		{"all tokens", "{preset}/{date}/{index}-{base}-{hash}.{format}", "web/20261018/3-IMG_0001-0123456789ab.jpg"},
		{"repeated", "{width}{width}", "10241024"},
		{"unknown passes through", "{base}_{quality}.{ext}", "IMG_0001_{quality}.jpg"},
		{"unbalanced open", "{base}_{width", "IMG_0001_{width"},
		{"stray close", "a}b_{base}", "a}b_IMG_0001"},
		{"nested open", "{{base}}", "{IMG_0001}"},
		{"empty braces", "x{}y", "x{}y"},
		{"no placeholders", "fixed.png", "fixed.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.pattern, sampleTokens()))
		})
	}
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "photo", BaseName("/data/in/photo.jpeg"))
	assert.Equal(t, "archive.tar", BaseName("archive.tar.gz"))
	assert.Equal(t, "noext", BaseName("dir/noext"))
	assert.Equal(t, "", BaseName(""))
}

func TestHash(t *testing.T) {
	h := Hash([]byte("hello"))
	assert.Len(t, h, 12)
	assert.Equal(t, h, Hash([]byte("hello")))
	assert.NotEqual(t, h, Hash([]byte("hello!")))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "20261018", Date(time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)))
}
