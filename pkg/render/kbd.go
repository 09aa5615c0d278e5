package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// kindKbd is the node kind of a keyboard key written as [[Key]].
var kindKbd = ast.NewNodeKind("Kbd")

type kbdNode struct {
	ast.BaseInline
}

func (n *kbdNode) Kind() ast.NodeKind {
	return kindKbd
}

func (n *kbdNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// kbdParser runs ahead of the link parser so [[Key]] is not read as a link
// label.
type kbdParser struct{}

func (kbdParser) Trigger() []byte {
	return []byte{'['}
}

func (kbdParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, seg := block.PeekLine()
	if len(line) < 5 || line[1] != '[' {
		return nil
	}
	end := bytes.Index(line[2:], []byte("]]"))
	if end <= 0 || bytes.ContainsAny(line[2:2+end], "[]\n") {
		return nil
	}

	n := &kbdNode{}
	n.AppendChild(n, ast.NewTextSegment(text.NewSegment(seg.Start+2, seg.Start+2+end)))
	block.Advance(end + 4)
	return n
}

type kbdRenderer struct{}

func (kbdRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(kindKbd, func(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			_, _ = w.WriteString("<kbd>")
		} else {
			_, _ = w.WriteString("</kbd>")
		}
		return ast.WalkContinue, nil
	})
}

type kbdExtension struct{}

func (kbdExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(util.Prioritized(kbdParser{}, 199)))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(util.Prioritized(kbdRenderer{}, 500)))
}
