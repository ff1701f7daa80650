package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindDiagram is the node kind of a fenced block annotated with a diagram language.
var KindDiagram = ast.NewNodeKind("Diagram")

// Diagram is a fenced code block whose language is a diagram keyword. It is
// rendered as <pre class="LANG"> so the page's diagram pass can find it.
type Diagram struct {
	ast.BaseBlock
	Language string
	Code     []byte
}

// Kind implements ast.Node.
func (n *Diagram) Kind() ast.NodeKind { return KindDiagram }

// IsRaw implements ast.Node.
func (n *Diagram) IsRaw() bool { return true }

// Dump implements ast.Node.
func (n *Diagram) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Language": n.Language}, nil)
}

type diagramTransformer struct {
	languages map[string]bool
}

func (t *diagramTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	var found []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fcb, ok := n.(*ast.FencedCodeBlock); ok && t.languages[blockLanguage(fcb, source)] {
			found = append(found, fcb)
		}
		return ast.WalkContinue, nil
	})

	for _, fcb := range found {
		var code bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			code.Write(seg.Value(source))
		}
		d := &Diagram{Language: blockLanguage(fcb, source), Code: code.Bytes()}
		parent := fcb.Parent()
		parent.ReplaceChild(parent, fcb, d)
	}
}

func blockLanguage(fcb *ast.FencedCodeBlock, source []byte) string {
	return strings.ToLower(string(fcb.Language(source)))
}

type diagramRenderer struct{}

func (r *diagramRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDiagram, r.render)
}

func (r *diagramRenderer) render(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Diagram)
	_, _ = w.WriteString(`<pre class="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.Language)))
	_, _ = w.WriteString(`">`)
	_, _ = w.Write(util.EscapeHTML(n.Code))
	_, _ = w.WriteString("</pre>\n")
	return ast.WalkSkipChildren, nil
}

// diagramExtension swaps diagram-annotated fenced blocks for Diagram nodes.
type diagramExtension struct {
	languages map[string]bool
}

func (e *diagramExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&diagramTransformer{languages: e.languages}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&diagramRenderer{}, 100),
	))
}
