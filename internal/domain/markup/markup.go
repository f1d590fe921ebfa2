package markup

import (
	"regexp"
	"strings"
)

// Override tag colours, in ASS &HBBGGRR& order.
const (
	colorWhite  = `&HFFFFFF&`
	colorBlue   = `&HFF0000&`
	colorRed    = `&H0000FF&`
	colorGreen  = `&H00FF00&`
	colorPurple = `&H800080&`
	colorGrey   = `&H808080&`
	colorBlack  = `&H000000&`
)

const (
	LocalImageLabel  = "LOCAL IMG"
	HostedImageLabel = "HOSTED IMG"
)

type Kind int

const (
	Footnote Kind = iota
	LocalImage
	HostedImage
	Reference
	Emphasis
	Bold
	Code
)

func (k Kind) String() string {
	switch k {
	case Footnote:
		return "footnote"
	case LocalImage:
		return "local_image"
	case HostedImage:
		return "hosted_image"
	case Reference:
		return "reference"
	case Emphasis:
		return "emphasis"
	case Bold:
		return "bold"
	case Code:
		return "code"
	default:
		return "unknown"
	}
}

// Rule rewrites every match of Pattern using the submatches of that match.
type Rule struct {
	Kind    Kind
	Pattern *regexp.Regexp
	Replace func(groups []string) string
}

// Rules is the translation order. Image syntax must run before Reference
// (`![[x]]` contains `[[x]]`), and the emphasis/code rules run last so that
// markers inside URLs and file names are already gone.
var Rules = []Rule{
	{
		Kind:    Footnote,
		Pattern: regexp.MustCompile(`\^\[\{(.*?)\}\]`),
		Replace: func(g []string) string { return `{\up1}` + g[1] + `{\up0}` },
	},
	{
		Kind:    LocalImage,
		Pattern: regexp.MustCompile(`!\[\[(.*?)\]\]`),
		Replace: func([]string) string { return imageLabel(LocalImageLabel) },
	},
	{
		Kind:    HostedImage,
		Pattern: regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`),
		Replace: func([]string) string { return imageLabel(HostedImageLabel) },
	},
	{
		Kind:    Reference,
		Pattern: regexp.MustCompile(`\[\[(.*?)\]\]`),
		Replace: func(g []string) string {
			return `{\c` + colorPurple + `}` + referenceText(g[1]) + `{\c` + colorWhite + `}`
		},
	},
	{
		Kind:    Emphasis,
		Pattern: regexp.MustCompile(`_([^_]+)_`),
		Replace: func(g []string) string {
			return `{\i1\c` + colorGreen + `}` + g[1] + `{\i0\c` + colorWhite + `}`
		},
	},
	{
		Kind:    Bold,
		Pattern: regexp.MustCompile(`\*([^*]+)\*`),
		Replace: func(g []string) string {
			return `{\b1\c` + colorRed + `}` + g[1] + `{\b0\c` + colorWhite + `}`
		},
	},
	{
		Kind:    Code,
		Pattern: regexp.MustCompile("`([^`]+)`"),
		Replace: func(g []string) string {
			return `{\4c` + colorGrey + `}` + g[1] + `{\4c` + colorBlack + `}`
		},
	},
}

// Translate converts inline note markup into subtitle override tags. It never
// fails: anything that does not match a rule stays literal.
func Translate(sentence string) string {
	out := sentence
	for _, r := range Rules {
		out = r.Apply(out)
	}
	return out
}

// Apply runs a single rule over s.
func (r Rule) Apply(s string) string {
	matches := r.Pattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 32*len(matches))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		groups := make([]string, len(m)/2)
		for i := range groups {
			if m[2*i] >= 0 {
				groups[i] = s[m[2*i]:m[2*i+1]]
			}
		}
		b.WriteString(r.Replace(groups))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func imageLabel(label string) string {
	return `{\b1\c` + colorBlue + `}` + label + `{\b0\c` + colorWhite + `}`
}

// referenceText renders `text | alias` as the alias when one is given.
func referenceText(inner string) string {
	text, alias, ok := strings.Cut(inner, "|")
	if ok {
		if a := strings.TrimSpace(alias); a != "" {
			return a
		}
	}
	return strings.TrimSpace(text)
}
