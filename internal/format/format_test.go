package format

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "code-" + strconv.Itoa(n)
	}
}

func TestFormatPlainText(t *testing.T) {
	inputs := []string{
		"Hello & <world>\n\"quoted\" it's",
		"just a sentence",
		"two\n\nblank lines",
	}
	for _, in := range inputs {
		got := Format(in)
		assert.Equal(t, strings.ReplaceAll(EscapeHTML(in), "\n", "<br>"), got.HTML, in)
		assert.Empty(t, got.CodeBlocks)
	}
	assert.Equal(t, "Hello &amp; &lt;world&gt;<br>&quot;quoted&quot; it&#39;s", Format(inputs[0]).HTML)
}

func TestFormatHeadings(t *testing.T) {
	got := Format("# Title\n## Sub\n### Small").HTML
	assert.Equal(t, "<h1>Title</h1><br><h2>Sub</h2><br><h3>Small</h3>", got)
}

func TestFormatEmphasis(t *testing.T) {
	got := Format("**b** and *i* and __u__ _v_").HTML
	assert.Equal(t, "<strong>b</strong> and <em>i</em> and <strong>u</strong> <em>v</em>", got)
}

func TestFormatListsStaySingleItem(t *testing.T) {
	got := Format("- one\n- two\n1. first").HTML
	assert.Equal(t, "<ul><li>one</li></ul><br><ul><li>two</li></ul><br><ul><li>first</li></ul>", got)
}

func TestFormatCodeBlock(t *testing.T) {
	f := New(WithIDGenerator(sequentialIDs()))
	got := f.Format("```go\nfmt.Println(\"<hi>\")```")

	want := `<div class="code-header">go<button class="copy-btn" data-code-id="code-1">Copy</button></div>` +
		`<pre><code id="code-1" class="language-go">fmt.Println(&quot;&lt;hi&gt;&quot;)</code></pre>`
	assert.Equal(t, want, got.HTML)
	require.Len(t, got.CodeBlocks, 1)
	assert.Equal(t, CodeBlock{ID: "code-1", Language: "go", Code: `fmt.Println("<hi>")`}, got.CodeBlocks[0])
}

func TestFormatCodeBlockContentIsNotReformatted(t *testing.T) {
	f := New(WithIDGenerator(sequentialIDs()))
	got := f.Format("```\n# not a heading\n**x**```")

	want := `<div class="code-header"><button class="copy-btn" data-code-id="code-1">Copy</button></div>` +
		`<pre><code id="code-1" class="language-"># not a heading<br>**x**</code></pre>`
	assert.Equal(t, want, got.HTML)
	assert.Equal(t, "# not a heading\n**x**", got.CodeBlocks[0].Code)
}

func TestFormatInlineCodeEscapedOnce(t *testing.T) {
	assert.Equal(t, "use <code>a&lt;b&gt;</code> now", Format("use `a<b>` now").HTML)
}

func TestFormatBlockquoteAndRule(t *testing.T) {
	assert.Equal(t, "<blockquote>quoted</blockquote><br><hr>", Format("> quoted\n---").HTML)
}

func TestFormatLinks(t *testing.T) {
	assert.Equal(t,
		`see <a href="https://example.com/x" target="_blank">https://example.com/x</a> now`,
		Format("see https://example.com/x now").HTML)
	assert.Equal(t,
		`<a href="https://a.com" target="_blank">https://a.com</a><br>next`,
		Format("https://a.com\nnext").HTML)
}

func TestFormatLinkifiesInsideCodeBlocks(t *testing.T) {
	f := New(WithIDGenerator(sequentialIDs()))
	got := f.Format("```\nhttps://x.io```")
	assert.Contains(t, got.HTML, `<a href="https://x.io" target="_blank">https://x.io</a></code>`)
}

func TestFormatFallsBackOnPanic(t *testing.T) {
	f := New(WithIDGenerator(func() string { panic("boom") }))
	got := f.Format("a\n```\nx```")
	assert.Equal(t, "a<br>```<br>x```", got.HTML)
	assert.Empty(t, got.CodeBlocks)
}

func TestFormatGeneratesUniqueIDs(t *testing.T) {
	got := Format("```js\na```\n```js\nb```")
	require.Len(t, got.CodeBlocks, 2)
	assert.NotEqual(t, got.CodeBlocks[0].ID, got.CodeBlocks[1].ID)
	for _, b := range got.CodeBlocks {
		assert.True(t, strings.HasPrefix(b.ID, "code-"))
		assert.Len(t, b.ID, len("code-")+9)
	}
}

func TestItalicRunsAfterBold(t *testing.T) {
	assert.Equal(t, "<em></em>x<em></em>", Italic("**x**"))
	assert.Equal(t, "<strong>x</strong>", Italic(Bold("**x**")))
}

func TestFormatIgnoresPlaceholderLookalikes(t *testing.T) {
	got := Format("see \x000\x00\n```go\nsecret()\n```")
	require.Len(t, got.CodeBlocks, 1)
	assert.Equal(t, 1, strings.Count(got.HTML, `<code id="`+got.CodeBlocks[0].ID+`"`))
	assert.Equal(t, 1, strings.Count(got.HTML, "secret()"))
	assert.NotContains(t, got.HTML, "\x00")
}
