package render

import (
	"bytes"
	"context"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// DefaultCodeStyle is the chroma style used for fenced code blocks.
const DefaultCodeStyle = "github"

var classNames = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// HTMLRenderer renders markdown to sanitized HTML. Raw HTML in messages is
// passed through goldmark and then cleaned by a bluemonday policy, and fenced
// code blocks in a known language are highlighted with chroma classes.
type HTMLRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	code   *codeBlockRenderer
}

// HTMLOption configures an HTMLRenderer.
type HTMLOption func(*htmlConfig)

type htmlConfig struct {
	codeStyle string
}

// WithCodeStyle selects the chroma style used for code blocks.
func WithCodeStyle(name string) HTMLOption {
	return func(c *htmlConfig) {
		c.codeStyle = name
	}
}

// NewHTMLRenderer creates an HTMLRenderer with linkified URLs, hard line
// breaks, GitHub flavoured tables and strikethrough, and [[Key]] keyboard
// markup.
func NewHTMLRenderer(opts ...HTMLOption) *HTMLRenderer {
	cfg := htmlConfig{codeStyle: DefaultCodeStyle}
	for _, opt := range opts {
		opt(&cfg)
	}

	code := &codeBlockRenderer{
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
		style:     styles.Get(cfg.codeStyle),
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, kbdExtension{}),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(code, 200)),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowElements("kbd", "span")
	policy.AllowAttrs("class").Matching(classNames).OnElements("pre", "code", "span", "div")

	return &HTMLRenderer{md: md, policy: policy, code: code}
}

// WriteCSS writes the stylesheet for the highlighted code classes.
func (r *HTMLRenderer) WriteCSS(w io.Writer) error {
	return r.code.formatter.WriteCSS(w, r.code.style)
}

// Render converts markdown text to sanitized HTML.
func (r *HTMLRenderer) Render(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return r.policy.Sanitize(buf.String()), nil
}

// codeBlockRenderer highlights fenced code blocks. Blocks without a known
// language fall back to escaped plain text.
type codeBlockRenderer struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lang := string(n.Language(source))
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		_, _ = w.WriteString("<pre><code>")
		_, _ = w.WriteString(html.EscapeString(code.String()))
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkSkipChildren, nil
	}

	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code.String())
	if err != nil {
		return ast.WalkStop, err
	}
	if err := r.formatter.Format(w, r.style, iterator); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}
