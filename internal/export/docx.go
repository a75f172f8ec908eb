package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/quilldocs/quill/internal/types"
)

// Docx renders the document as a DOCX file.
func Docx(doc *types.DocumentRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDocx(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDocx writes the document as a DOCX package. The package is a zip
// archive: content types, relationships, styles, and the document body.
func WriteDocx(w io.Writer, doc *types.DocumentRecord) error {
	zw := zip.NewWriter(w)

	entries := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/document.xml", documentXML(doc)},
	}
	for _, e := range entries {
		f, err := zw.Create(e.name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", e.name, err)
		}
		if _, err := f.Write([]byte(e.data)); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}

	return zw.Close()
}

// ExportFilename derives a safe .docx filename from a document title.
func ExportFilename(title string) string {
	if title == "" {
		title = "document"
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "document"
	}
	return name + ".docx"
}

// documentXML builds the document body: the title, then every page and
// section in stored order, each with a heading and its normalized
// content.
func documentXML(doc *types.DocumentRecord) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	writeParagraph(&b, block{style: "Title", runs: []runSpan{{text: doc.Title}}})

	writeUnits(&b, doc.Pages)
	writeUnits(&b, doc.Sections)

	b.WriteString(`<w:sectPr/></w:body></w:document>`)
	return b.String()
}

func writeUnits(b *strings.Builder, units []types.UnitResult) {
	for _, u := range units {
		writeParagraph(b, block{style: "Heading1", runs: []runSpan{{text: u.Name}}})
		for _, blk := range htmlToBlocks(NormalizeHTML(u.Content)) {
			if blk.table != nil {
				writeTable(b, blk.table)
			} else {
				writeParagraph(b, blk)
			}
		}
	}
}

// runSpan is one contiguous run of styled text.
type runSpan struct {
	text   string
	bold   bool
	italic bool
}

// block is one body-level element: either a styled paragraph or a table.
type block struct {
	style string // "", "Title", "Heading1", "Heading2", "ListParagraph"
	runs  []runSpan
	table [][]string
}

// htmlToBlocks flattens an HTML fragment into paragraph and table blocks.
// Unknown elements contribute their text; nothing is dropped.
func htmlToBlocks(fragment string) []block {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return []block{{runs: []runSpan{{text: fragment}}}}
	}

	var blocks []block
	var current *block

	flush := func() {
		if current != nil && len(current.runs) > 0 {
			blocks = append(blocks, *current)
		}
		current = nil
	}
	appendRun := func(text string, bold, italic bool) {
		if current == nil {
			current = &block{}
		}
		current.runs = append(current.runs, runSpan{text: text, bold: bold, italic: italic})
	}

	var walk func(n *html.Node, bold, italic bool)
	walkChildren := func(n *html.Node, bold, italic bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, bold, italic)
		}
	}
	walk = func(n *html.Node, bold, italic bool) {
		switch n.Type {
		case html.TextNode:
			if text := collapseSpace(n.Data); strings.TrimSpace(text) != "" {
				appendRun(text, bold, italic)
			}
		case html.ElementNode:
			switch n.DataAtom {
			case atom.H1:
				flush()
				current = &block{style: "Heading1"}
				walkChildren(n, bold, italic)
				flush()
			case atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
				flush()
				current = &block{style: "Heading2"}
				walkChildren(n, bold, italic)
				flush()
			case atom.P, atom.Div:
				flush()
				current = &block{}
				walkChildren(n, bold, italic)
				flush()
			case atom.Li:
				flush()
				current = &block{style: "ListParagraph"}
				appendRun("• ", bold, italic)
				walkChildren(n, bold, italic)
				flush()
			case atom.Table:
				flush()
				if rows := tableRows(n); len(rows) > 0 {
					blocks = append(blocks, block{table: rows})
				}
			case atom.B, atom.Strong:
				walkChildren(n, true, italic)
			case atom.I, atom.Em:
				walkChildren(n, bold, true)
			case atom.Br:
				appendRun(" ", bold, italic)
			case atom.Script, atom.Style:
				// Dropped entirely.
			default:
				walkChildren(n, bold, italic)
			}
		}
	}
	for _, n := range nodes {
		walk(n, false, false)
	}
	flush()
	return blocks
}

// tableRows extracts the cell text matrix from a table element.
func tableRows(table *html.Node) [][]string {
	var rows [][]string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var row []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					row = append(row, strings.TrimSpace(innerText(c)))
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(table)
	return rows
}

func innerText(n *html.Node) string {
	var b strings.Builder
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func writeParagraph(b *strings.Builder, blk block) {
	b.WriteString(`<w:p>`)
	if blk.style != "" {
		b.WriteString(`<w:pPr><w:pStyle w:val="` + blk.style + `"/></w:pPr>`)
	}
	for _, r := range blk.runs {
		b.WriteString(`<w:r>`)
		if r.bold || r.italic {
			b.WriteString(`<w:rPr>`)
			if r.bold {
				b.WriteString(`<w:b/>`)
			}
			if r.italic {
				b.WriteString(`<w:i/>`)
			}
			b.WriteString(`</w:rPr>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		b.WriteString(escapeXML(r.text))
		b.WriteString(`</w:t></w:r>`)
	}
	b.WriteString(`</w:p>`)
}

func writeTable(b *strings.Builder, rows [][]string) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/></w:tblPr>`)
	for _, row := range rows {
		b.WriteString(`<w:tr>`)
		for _, cell := range row {
			b.WriteString(`<w:tc><w:tcPr/><w:p><w:r><w:t xml:space="preserve">`)
			b.WriteString(escapeXML(cell))
			b.WriteString(`</w:t></w:r></w:p></w:tc>`)
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
  <Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:styleId="Title">
    <w:name w:val="Title"/>
    <w:rPr><w:b/><w:sz w:val="48"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:styleId="Heading1">
    <w:name w:val="heading 1"/>
    <w:rPr><w:b/><w:sz w:val="32"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:styleId="Heading2">
    <w:name w:val="heading 2"/>
    <w:rPr><w:b/><w:sz w:val="28"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:styleId="ListParagraph">
    <w:name w:val="List Paragraph"/>
  </w:style>
  <w:style w:type="table" w:styleId="TableGrid">
    <w:name w:val="Table Grid"/>
  </w:style>
</w:styles>`
