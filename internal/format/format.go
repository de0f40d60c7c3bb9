// Package format renders the markdown-lite subset used in chat messages into HTML.
//
// Rendering is an ordered pipeline of small passes. The order is load-bearing:
// later passes must not re-match the markup produced by earlier ones, so the
// passes run exactly as listed in Format.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CodeBlock is a fenced code block extracted from a message.
type CodeBlock struct {
	ID       string // DOM id shared by the copy button and the <code> element
	Language string
	Code     string // Raw, unescaped source
}

// Rendered is the output of Format.
type Rendered struct {
	HTML       string
	CodeBlocks []CodeBlock
}

// Formatter renders messages. The zero value is not usable; call New.
type Formatter struct {
	newID func() string
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithIDGenerator replaces the code-block id generator.
func WithIDGenerator(gen func() string) Option {
	return func(f *Formatter) { f.newID = gen }
}

func New(opts ...Option) *Formatter {
	f := &Formatter{newID: NewCodeID}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewCodeID returns a fresh "code-xxxxxxxxx" identifier.
func NewCodeID() string {
	return "code-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

var (
	fencePattern      = regexp.MustCompile("```(\\w+)?\\n([\\s\\S]*?)```")
	placeholderRegexp = regexp.MustCompile("\x00(\\d+)\x00")

	h3Pattern = regexp.MustCompile(`(?m)^### (.*)$`)
	h2Pattern = regexp.MustCompile(`(?m)^## (.*)$`)
	h1Pattern = regexp.MustCompile(`(?m)^# (.*)$`)

	boldStarPattern       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	boldUnderscorePattern = regexp.MustCompile(`__(.*?)__`)
	italicStarPattern     = regexp.MustCompile(`\*(.*?)\*`)
	italicUnderPattern    = regexp.MustCompile(`_(.*?)_`)

	starItemPattern    = regexp.MustCompile(`(?m)^\* (.*)$`)
	dashItemPattern    = regexp.MustCompile(`(?m)^- (.*)$`)
	orderedItemPattern = regexp.MustCompile(`(?m)^(\d+)\. (.*)$`)
	listItemPattern    = regexp.MustCompile(`(<li>.*</li>)`)

	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	blockquotePattern = regexp.MustCompile(`(?m)^&gt; (.*)$`)
	rulePattern       = regexp.MustCompile(`(?m)^---$`)
	urlPattern        = regexp.MustCompile(`(https?://[^\s<]+)`)
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes the five HTML-significant characters &<>"'.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Headings converts "# ", "## " and "### " lines into h1-h3.
func Headings(s string) string {
	s = h3Pattern.ReplaceAllString(s, "<h3>$1</h3>")
	s = h2Pattern.ReplaceAllString(s, "<h2>$1</h2>")
	return h1Pattern.ReplaceAllString(s, "<h1>$1</h1>")
}

// Bold converts **x** and __x__.
func Bold(s string) string {
	s = boldStarPattern.ReplaceAllString(s, "<strong>$1</strong>")
	return boldUnderscorePattern.ReplaceAllString(s, "<strong>$1</strong>")
}

// Italic converts *x* and _x_. Must run after Bold.
func Italic(s string) string {
	s = italicStarPattern.ReplaceAllString(s, "<em>$1</em>")
	return italicUnderPattern.ReplaceAllString(s, "<em>$1</em>")
}

// ListItems converts "* x", "- x" and "N. x" lines into <li> elements.
func ListItems(s string) string {
	s = starItemPattern.ReplaceAllString(s, "<li>$1</li>")
	s = dashItemPattern.ReplaceAllString(s, "<li>$1</li>")
	return orderedItemPattern.ReplaceAllString(s, "<li>$2</li>")
}

// WrapLists wraps each line's list items in a <ul>. Adjacent items end up in
// separate single-item lists; widget stylesheets depend on this shape.
func WrapLists(s string) string {
	return listItemPattern.ReplaceAllString(s, "<ul>$1</ul>")
}

// InlineCode converts `x` into <code>x</code>. Input is already escaped.
func InlineCode(s string) string {
	return inlineCodePattern.ReplaceAllString(s, "<code>$1</code>")
}

// Blockquotes converts "> x" lines. Matches the escaped form of '>'.
func Blockquotes(s string) string {
	return blockquotePattern.ReplaceAllString(s, "<blockquote>$1</blockquote>")
}

// Rules converts "---" lines into <hr>.
func Rules(s string) string {
	return rulePattern.ReplaceAllString(s, "<hr>")
}

// Linkify turns bare http(s) URLs into links that open in a new tab.
func Linkify(s string) string {
	return urlPattern.ReplaceAllString(s, `<a href="$1" target="_blank">$1</a>`)
}

// LineBreaks replaces newlines with <br>.
func LineBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", "<br>")
}

// RenderCodeBlock returns the HTML for one fenced block: a header with the
// language label and copy button, then the escaped code.
func RenderCodeBlock(block CodeBlock) string {
	return fmt.Sprintf(
		`<div class="code-header">%s<button class="copy-btn" data-code-id="%s">Copy</button></div>`+
			`<pre><code id="%s" class="language-%s">%s</code></pre>`,
		block.Language, block.ID, block.ID, block.Language, EscapeHTML(block.Code),
	)
}

// extractFences swaps every fenced block for a NUL-delimited placeholder so the
// inline passes never see code. The placeholder contains no markdown tokens.
func extractFences(s string) (string, []CodeBlock) {
	var blocks []CodeBlock
	out := fencePattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := fencePattern.FindStringSubmatch(match)
		blocks = append(blocks, CodeBlock{Language: sub[1], Code: sub[2]})
		return "\x00" + strconv.Itoa(len(blocks)-1) + "\x00"
	})
	return out, blocks
}

func spliceFences(s string, rendered []string) string {
	return placeholderRegexp.ReplaceAllStringFunc(s, func(match string) string {
		i, err := strconv.Atoi(strings.Trim(match, "\x00"))
		if err != nil || i >= len(rendered) {
			return match
		}
		return rendered[i]
	})
}

// Format renders text. It never panics: on any internal failure it falls back
// to the escaped text with line breaks.
func (f *Formatter) Format(text string) (out Rendered) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("component", "format").Interface("panic", r).Msg("formatter failed, rendering plain text")
			out = Rendered{HTML: LineBreaks(EscapeHTML(text))}
		}
	}()

	// NUL delimits fence placeholders and never appears in rendered text.
	text = strings.ReplaceAll(text, "\x00", "")
	s, blocks := extractFences(text)
	s = EscapeHTML(s)
	s = Headings(s)
	s = Bold(s)
	s = Italic(s)
	s = ListItems(s)
	s = WrapLists(s)

	// Code blocks: ids are assigned here; the markup is spliced back after the
	// line-oriented passes so block contents stay byte-identical.
	rendered := make([]string, len(blocks))
	for i := range blocks {
		blocks[i].ID = f.newID()
		rendered[i] = RenderCodeBlock(blocks[i])
	}

	s = InlineCode(s)
	s = Blockquotes(s)
	s = Rules(s)
	s = spliceFences(s, rendered)

	// Links run over code too; URLs inside code blocks are linkified as well.
	s = Linkify(s)
	s = LineBreaks(s)

	return Rendered{HTML: s, CodeBlocks: blocks}
}

var defaultFormatter = New()

// Format renders text with the default formatter.
func Format(text string) Rendered {
	return defaultFormatter.Format(text)
}
