package tag

import (
	"bytes"
	"strings"
)

// attr is one XML attribute, kept as an ordered pair rather than a map so
// output attribute order is deterministic.
type attr struct {
	name  string
	value string
}

// xmlWriter renders indented XML directly to a buffer (spec.md section
// 6.4: two-space indentation, newlines around nested elements), the way
// a hand-rolled textual encoder in this corpus writes output rather than
// building and walking a DOM.
type xmlWriter struct {
	buf   *bytes.Buffer
	depth int
}

func (w *xmlWriter) indent() {
	w.buf.WriteByte('\n')
	for i := 0; i < w.depth; i++ {
		w.buf.WriteString("  ")
	}
}

func (w *xmlWriter) writeAttrs(attrs []attr) {
	for _, a := range attrs {
		w.buf.WriteByte(' ')
		w.buf.WriteString(a.name)
		w.buf.WriteString(`="`)
		w.buf.WriteString(escapeXMLAttr(a.value))
		w.buf.WriteByte('"')
	}
}

func (w *xmlWriter) openTag(name string, attrs []attr) {
	w.indent()
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	w.writeAttrs(attrs)
	w.buf.WriteByte('>')
	w.depth++
}

func (w *xmlWriter) closeTag(name string) {
	w.depth--
	w.indent()
	w.buf.WriteString("</")
	w.buf.WriteString(name)
	w.buf.WriteByte('>')
}

func (w *xmlWriter) selfClosingTag(name string, attrs []attr) {
	w.indent()
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	w.writeAttrs(attrs)
	w.buf.WriteString("/>")
}

// leaf writes a single element with inline text content and no nested
// elements: <tag attrs>text</tag>.
func (w *xmlWriter) leaf(name string, attrs []attr, text string) {
	w.indent()
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	w.writeAttrs(attrs)
	w.buf.WriteByte('>')
	w.buf.WriteString(escapeXMLText(text))
	w.buf.WriteString("</")
	w.buf.WriteString(name)
	w.buf.WriteByte('>')
}

func escapeXMLText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

func escapeXMLAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
