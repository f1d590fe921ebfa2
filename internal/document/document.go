// Package document reads notes: a frontmatter block of key: value lines, an
// optional fenced query block, and the prose after it that becomes the video.
package document

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	frontmatterDelimiter = "---"
	fence                = "```"

	// DefaultScanLimit caps how many notes Scan returns.
	DefaultScanLimit = 40
)

// mediaKeys are the frontmatter keys searched, in order, for a narration URL.
var mediaKeys = []string{"url", "source", "link", "youtube", "video", "audio"}

type Document struct {
	Name        string         `json:"filename"`
	Path        string         `json:"filepath"`
	Frontmatter map[string]any `json:"frontmatter"`
	Body        string         `json:"-"`
	MediaURL    string         `json:"media_url,omitempty"`
}

// Title is the frontmatter title, falling back to the file name without its
// extension.
func (d Document) Title() string {
	if t, ok := d.Frontmatter["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.TrimSuffix(d.Name, filepath.Ext(d.Name))
}

// Load reads and parses the note at path.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read note: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Parse(abs, string(raw)), nil
}

// Parse splits raw into frontmatter and body. It never fails: a note without
// frontmatter has an empty map and its whole content as body.
func Parse(path, raw string) Document {
	raw = strings.TrimPrefix(raw, "\ufeff")
	fm, rest := splitFrontmatter(raw)

	doc := Document{
		Name:        filepath.Base(path),
		Path:        path,
		Frontmatter: parseFrontmatter(fm),
		Body:        extractBody(rest),
	}
	doc.Frontmatter["filename"] = doc.Name
	doc.Frontmatter["filepath"] = doc.Path
	doc.MediaURL = mediaURL(doc.Frontmatter)
	return doc
}

// Scan lists the markdown notes directly inside dir, sorted by name, parsing
// at most limit of them.
func Scan(dir string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = DefaultScanLimit
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read notes dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []Document
	for _, e := range entries {
		if len(docs) >= limit {
			break
		}
		if !e.Type().IsRegular() || !IsNote(e.Name()) {
			continue
		}
		doc, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// IsNote reports whether name looks like a markdown note.
func IsNote(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}

func splitFrontmatter(raw string) (string, string) {
	trimmed := strings.TrimLeft(raw, " \t\r\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter) {
		return "", raw
	}
	after := trimmed[len(frontmatterDelimiter):]
	end := strings.Index(after, "\n"+frontmatterDelimiter)
	if end < 0 {
		return after, ""
	}
	rest := after[end+1+len(frontmatterDelimiter):]
	return after[:end], rest
}

func parseFrontmatter(block string) map[string]any {
	out := make(map[string]any)
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		out[key] = coerce(strings.TrimSpace(value))
	}
	return out
}

// coerce turns a frontmatter value into a bool, a number or a string, in
// that order of preference.
func coerce(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '\'' && v[len(v)-1] == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}

// extractBody returns the text after the last code fence, or all of rest when
// there is none, trimmed and NFC-normalized.
func extractBody(rest string) string {
	if i := strings.LastIndex(rest, fence); i >= 0 {
		rest = rest[i+len(fence):]
	}
	return norm.NFC.String(strings.TrimSpace(rest))
}

func mediaURL(fm map[string]any) string {
	for _, k := range mediaKeys {
		s, ok := fm[k].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
			return s
		}
	}
	return ""
}
