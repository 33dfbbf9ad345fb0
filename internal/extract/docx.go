// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls normalized content out of uploaded documents: an
// HTML node sequence for Word packages and per-page text for PDFs.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pdiddy/docflip/internal/format"
	"github.com/pdiddy/docflip/pkg/types"
)

var (
	// ErrLegacyDoc is returned for binary .doc files, which are OLE compound
	// files rather than OOXML packages.
	ErrLegacyDoc = errors.New("legacy binary .doc files are not supported; save as .docx")

	// ErrNotPackage is returned when the payload is not a Word package.
	ErrNotPackage = errors.New("not a Word document package")
)

const (
	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relHyperlink      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relNumbering      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"

	defaultMainPart = "word/document.xml"
)

// RichExtractor turns a Word package into ordered HTML content.
type RichExtractor interface {
	Extract(ctx context.Context, data []byte) (types.RichContent, error)
}

// DOCXExtractor reads OOXML word-processing packages. Images are embedded as
// data URIs. An image that cannot be read is omitted and logged; it never
// fails the document.
type DOCXExtractor struct {
	Log zerolog.Logger
}

// NewDOCXExtractor returns an extractor that reports dropped images to log,
// or to the logger carried by the context when there is one.
func NewDOCXExtractor(log zerolog.Logger) *DOCXExtractor {
	return &DOCXExtractor{Log: log}
}

// Extract parses data and returns its content in reading order.
func (e *DOCXExtractor) Extract(ctx context.Context, data []byte) (types.RichContent, error) {
	if format.Detect(data) == types.MediaLegacy {
		return types.RichContent{}, ErrLegacyDoc
	}

	pkg, err := openPackage(data)
	if err != nil {
		return types.RichContent{}, err
	}

	var body xnode
	if err := pkg.readXML(pkg.main, &body); err != nil {
		return types.RichContent{}, err
	}
	if body.XMLName.Local != "document" {
		return types.RichContent{}, fmt.Errorf("%w: root element of %s is %q", ErrNotPackage, pkg.main, body.XMLName.Local)
	}

	log := e.Log
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		log = *l
	}
	w := &walker{ctx: ctx, pkg: pkg, log: log}
	for _, child := range body.Nodes {
		if child.XMLName.Local == "body" {
			if err := w.blocks(child.Nodes); err != nil {
				return types.RichContent{}, err
			}
		}
	}
	w.flushList()

	return types.RichContent{Nodes: w.out, DroppedImages: w.dropped}, nil
}

// xnode is a generic, order-preserving XML element.
type xnode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xnode    `xml:",any"`
	Text    string     `xml:",chardata"`
}

func (n *xnode) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func (n *xnode) child(local string) *xnode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

// find returns the first descendant with the given local name.
func (n *xnode) find(local string) *xnode {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local == local {
			return c
		}
		if d := c.find(local); d != nil {
			return d
		}
	}
	return nil
}

// onOff reports whether a toggle property such as <w:b/> is set. A missing
// val or any value other than false/0/off enables it.
func (n *xnode) onOff(local string) bool {
	p := n.child(local)
	if p == nil {
		return false
	}
	switch strings.ToLower(p.attr("val")) {
	case "false", "0", "off", "none":
		return false
	}
	return true
}

type relationship struct {
	Type       string
	Target     string
	TargetMode string
}

type relsFile struct {
	Relationships []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// wordPackage indexes the parts of an opened package.
type wordPackage struct {
	files     map[string]*zip.File
	main      string
	rels      map[string]relationship
	headings  map[string]int // style id -> heading level
	numFormat map[string]map[string]string
}

func openPackage(data []byte) (*wordPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening package: %w", err)
	}

	pkg := &wordPackage{
		files:     make(map[string]*zip.File, len(zr.File)),
		rels:      map[string]relationship{},
		headings:  map[string]int{},
		numFormat: map[string]map[string]string{},
	}
	for _, f := range zr.File {
		pkg.files[strings.TrimPrefix(f.Name, "/")] = f
	}

	pkg.main = defaultMainPart
	if root, err := pkg.readRels("_rels/.rels", ""); err == nil {
		for _, r := range root {
			if r.Type == relOfficeDocument {
				pkg.main = r.Target
			}
		}
	}
	if _, ok := pkg.files[pkg.main]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrNotPackage, pkg.main)
	}

	dir, file := path.Split(pkg.main)
	if rels, err := pkg.readRels(dir+"_rels/"+file+".rels", dir); err == nil {
		pkg.rels = rels
	}

	for _, r := range pkg.rels {
		switch r.Type {
		case relStyles:
			pkg.loadStyles(r.Target)
		case relNumbering:
			pkg.loadNumbering(r.Target)
		}
	}
	return pkg, nil
}

// readRels parses a relationships part and resolves internal targets
// against base.
func (p *wordPackage) readRels(name, base string) (map[string]relationship, error) {
	var rf relsFile
	if err := p.readXML(name, &rf); err != nil {
		return nil, err
	}
	out := make(map[string]relationship, len(rf.Relationships))
	for _, r := range rf.Relationships {
		target := r.Target
		if r.TargetMode != "External" {
			target = resolvePart(base, target)
		}
		out[r.ID] = relationship{Type: r.Type, Target: target, TargetMode: r.TargetMode}
	}
	return out, nil
}

func resolvePart(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(base, target))
}

func (p *wordPackage) readFile(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("part not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func (p *wordPackage) readXML(name string, v any) error {
	data, err := p.readFile(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}

// loadStyles records which paragraph styles are headings. Missing or broken
// style parts leave every paragraph as body text.
func (p *wordPackage) loadStyles(name string) {
	var root xnode
	if err := p.readXML(name, &root); err != nil {
		return
	}
	for i := range root.Nodes {
		s := &root.Nodes[i]
		if s.XMLName.Local != "style" || s.attr("type") != "paragraph" {
			continue
		}
		id := s.attr("styleId")
		styleName := ""
		if n := s.child("name"); n != nil {
			styleName = n.attr("val")
		}
		if lvl := headingLevel(id, styleName); lvl > 0 {
			p.headings[id] = lvl
			continue
		}
		if ppr := s.child("pPr"); ppr != nil {
			if lvl := outlineLevel(ppr); lvl > 0 {
				p.headings[id] = lvl
			}
		}
	}
}

func headingLevel(id, name string) int {
	for _, candidate := range []string{strings.ToLower(name), strings.ToLower(id)} {
		switch {
		case candidate == "title":
			return 1
		case strings.HasPrefix(candidate, "heading"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(candidate, "heading")))
			if err == nil && n >= 1 {
				return min(n, 6)
			}
		}
	}
	return 0
}

// outlineLevel converts w:outlineLvl (0-based, 9 means body text) into a
// heading level.
func outlineLevel(ppr *xnode) int {
	o := ppr.child("outlineLvl")
	if o == nil {
		return 0
	}
	n, err := strconv.Atoi(o.attr("val"))
	if err != nil || n < 0 || n > 5 {
		return 0
	}
	return n + 1
}

// loadNumbering maps numId -> ilvl -> numFmt so lists can be rendered as
// ordered or unordered.
func (p *wordPackage) loadNumbering(name string) {
	var root xnode
	if err := p.readXML(name, &root); err != nil {
		return
	}
	abstract := map[string]map[string]string{}
	for i := range root.Nodes {
		n := &root.Nodes[i]
		if n.XMLName.Local != "abstractNum" {
			continue
		}
		levels := map[string]string{}
		for j := range n.Nodes {
			lvl := &n.Nodes[j]
			if lvl.XMLName.Local != "lvl" {
				continue
			}
			if f := lvl.child("numFmt"); f != nil {
				levels[lvl.attr("ilvl")] = f.attr("val")
			}
		}
		abstract[n.attr("abstractNumId")] = levels
	}
	for i := range root.Nodes {
		n := &root.Nodes[i]
		if n.XMLName.Local != "num" {
			continue
		}
		if a := n.child("abstractNumId"); a != nil {
			p.numFormat[n.attr("numId")] = abstract[a.attr("val")]
		}
	}
}

func (p *wordPackage) ordered(numID, ilvl string) bool {
	f := p.numFormat[numID][ilvl]
	return f != "" && f != "bullet" && f != "none"
}

// walker converts body elements into content nodes.
type walker struct {
	ctx     context.Context
	pkg     *wordPackage
	log     zerolog.Logger
	out     []types.ContentNode
	dropped int

	list    *html.Node
	listNum string
}

func (w *walker) blocks(nodes []xnode) error {
	for i := range nodes {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		n := &nodes[i]
		switch n.XMLName.Local {
		case "p":
			w.paragraph(n)
		case "tbl":
			w.flushList()
			w.emit(types.NodeTable, 0, w.table(n))
		case "sdt":
			if c := n.child("sdtContent"); c != nil {
				if err := w.blocks(c.Nodes); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *walker) emit(kind types.NodeKind, level int, n *html.Node) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		w.log.Warn().Err(err).Str("kind", string(kind)).Msg("skipping unrenderable node")
		return
	}
	w.out = append(w.out, types.ContentNode{Kind: kind, Level: level, HTML: buf.String()})
}

func (w *walker) paragraph(p *xnode) {
	ppr := p.child("pPr")
	level := 0
	var numID, ilvl string
	if ppr != nil {
		if s := ppr.child("pStyle"); s != nil {
			level = w.pkg.headings[s.attr("val")]
		}
		if level == 0 {
			level = outlineLevel(ppr)
		}
		if np := ppr.child("numPr"); np != nil {
			if id := np.child("numId"); id != nil && id.attr("val") != "0" {
				numID = id.attr("val")
				ilvl = "0"
				if l := np.child("ilvl"); l != nil {
					ilvl = l.attr("val")
				}
			}
		}
	}

	children, images := w.inline(p.Nodes)
	if images == 0 && blank(children) {
		return
	}

	if numID != "" && level == 0 {
		li := element(atom.Li)
		appendAll(li, children)
		w.addListItem(numID, ilvl, li)
		return
	}
	w.flushList()

	switch {
	case level > 0:
		h := element(headingAtoms[level-1])
		appendAll(h, children)
		w.emit(types.NodeHeading, level, h)
	case images == len(children):
		para := element(atom.P)
		appendAll(para, children)
		w.emit(types.NodeImage, 0, para)
	default:
		para := element(atom.P)
		appendAll(para, children)
		w.emit(types.NodeParagraph, 0, para)
	}
}

// blank reports whether nodes carry no visible text and no images.
func blank(nodes []*html.Node) bool {
	for _, n := range nodes {
		switch {
		case n.Type == html.TextNode && strings.TrimSpace(n.Data) != "":
			return false
		case n.Type == html.ElementNode && n.DataAtom == atom.Img:
			return false
		}
		var kids []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			kids = append(kids, c)
		}
		if !blank(kids) {
			return false
		}
	}
	return true
}

var headingAtoms = [6]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

func (w *walker) addListItem(numID, ilvl string, li *html.Node) {
	if w.list != nil && w.listNum != numID {
		w.flushList()
	}
	if w.list == nil {
		tag := atom.Ul
		if w.pkg.ordered(numID, ilvl) {
			tag = atom.Ol
		}
		w.list = element(tag)
		w.listNum = numID
	}
	w.list.AppendChild(li)
}

func (w *walker) flushList() {
	if w.list == nil {
		return
	}
	list := w.list
	w.list, w.listNum = nil, ""
	w.emit(types.NodeList, 0, list)
}

// inline converts paragraph children into HTML nodes, returning how many of
// them are images.
func (w *walker) inline(nodes []xnode) ([]*html.Node, int) {
	var out []*html.Node
	images := 0
	for i := range nodes {
		n := &nodes[i]
		switch n.XMLName.Local {
		case "r":
			run, imgs := w.run(n)
			out = append(out, run...)
			images += imgs
		case "hyperlink":
			kids, imgs := w.inline(n.Nodes)
			if len(kids) == 0 {
				continue
			}
			images += imgs
			href := w.href(n)
			if href == "" {
				out = append(out, kids...)
				continue
			}
			a := element(atom.A, html.Attribute{Key: "href", Val: href})
			appendAll(a, kids)
			out = append(out, a)
		case "ins", "smartTag", "fldSimple", "customXml":
			kids, imgs := w.inline(n.Nodes)
			out = append(out, kids...)
			images += imgs
		case "sdt":
			if c := n.child("sdtContent"); c != nil {
				kids, imgs := w.inline(c.Nodes)
				out = append(out, kids...)
				images += imgs
			}
		}
	}
	return out, images
}

func (w *walker) href(n *xnode) string {
	if id := n.attr("id"); id != "" {
		if r, ok := w.pkg.rels[id]; ok && r.Type == relHyperlink && safeLink(r.Target) {
			return r.Target
		}
	}
	if anchor := n.attr("anchor"); anchor != "" {
		return "#" + anchor
	}
	return ""
}

// safeLink accepts web, mail, and in-document links only.
func safeLink(target string) bool {
	t := strings.ToLower(strings.TrimSpace(target))
	for _, prefix := range []string{"http://", "https://", "mailto:", "#"} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// run renders one w:r. Text is wrapped in formatting elements; images are
// returned as separate nodes.
func (w *walker) run(r *xnode) ([]*html.Node, int) {
	var out []*html.Node
	var text strings.Builder
	images := 0

	flush := func() {
		if text.Len() == 0 {
			return
		}
		out = append(out, formatText(r.child("rPr"), text.String()))
		text.Reset()
	}

	for i := range r.Nodes {
		c := &r.Nodes[i]
		switch c.XMLName.Local {
		case "t":
			text.WriteString(c.Text)
		case "tab":
			text.WriteByte('\t')
		case "noBreakHyphen":
			text.WriteByte('-')
		case "br", "cr":
			if c.attr("type") == "page" || c.attr("type") == "column" {
				continue
			}
			flush()
			out = append(out, element(atom.Br))
		case "drawing", "pict", "object", "AlternateContent":
			flush()
			if c.XMLName.Local == "AlternateContent" {
				// The first choice is the richest rendition; fallbacks repeat it.
				if ch := c.child("Choice"); ch != nil {
					c = ch
				}
			}
			if img := w.image(c); img != nil {
				out = append(out, img)
				images++
			}
		}
	}
	flush()
	return out, images
}

func formatText(rpr *xnode, s string) *html.Node {
	node := &html.Node{Type: html.TextNode, Data: s}
	if rpr == nil {
		return node
	}
	wrap := func(a atom.Atom) {
		e := element(a)
		e.AppendChild(node)
		node = e
	}
	if rpr.onOff("strike") || rpr.onOff("dstrike") {
		wrap(atom.S)
	}
	if u := rpr.child("u"); u != nil && u.attr("val") != "none" {
		wrap(atom.U)
	}
	if rpr.onOff("i") {
		wrap(atom.Em)
	}
	if rpr.onOff("b") {
		wrap(atom.Strong)
	}
	if va := rpr.child("vertAlign"); va != nil {
		switch va.attr("val") {
		case "superscript":
			wrap(atom.Sup)
		case "subscript":
			wrap(atom.Sub)
		}
	}
	return node
}

// image resolves the relationship referenced by a drawing into a data URI.
// Unresolvable images are counted, logged, and omitted.
func (w *walker) image(d *xnode) *html.Node {
	id := ""
	if blip := d.find("blip"); blip != nil {
		id = blip.attr("embed")
	}
	if id == "" {
		if vi := d.find("imagedata"); vi != nil {
			id = vi.attr("id")
		}
	}
	if id == "" {
		// Shapes and charts without a bitmap.
		return nil
	}

	alt := ""
	if dp := d.find("docPr"); dp != nil {
		alt = dp.attr("descr")
	}

	src, err := w.dataURI(id)
	if err != nil {
		w.dropped++
		w.log.Warn().Err(err).Str("rel_id", id).Msg("omitting unreadable image")
		return nil
	}

	attrs := []html.Attribute{{Key: "src", Val: src}}
	if alt != "" {
		attrs = append(attrs, html.Attribute{Key: "alt", Val: alt})
	}
	return element(atom.Img, attrs...)
}

func (w *walker) dataURI(id string) (string, error) {
	rel, ok := w.pkg.rels[id]
	if !ok {
		return "", fmt.Errorf("unknown relationship %s", id)
	}
	if rel.TargetMode == "External" {
		return "", fmt.Errorf("linked image %s is not embedded", rel.Target)
	}
	if rel.Type != relImage {
		return "", fmt.Errorf("relationship %s is not an image", id)
	}
	data, err := w.pkg.readFile(rel.Target)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("image %s is empty", rel.Target)
	}
	return "data:" + imageContentType(rel.Target, data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".emf":  "image/x-emf",
	".wmf":  "image/x-wmf",
}

func imageContentType(name string, data []byte) string {
	if ct, ok := imageTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return http.DetectContentType(data)
}

// table flattens a w:tbl into simple table markup; nested block content is
// rendered paragraph by paragraph inside each cell.
func (w *walker) table(t *xnode) *html.Node {
	table := element(atom.Table)
	for i := range t.Nodes {
		tr := &t.Nodes[i]
		if tr.XMLName.Local != "tr" {
			continue
		}
		row := element(atom.Tr)
		for j := range tr.Nodes {
			tc := &tr.Nodes[j]
			if tc.XMLName.Local != "tc" {
				continue
			}
			cell := element(atom.Td)
			if tcPr := tc.child("tcPr"); tcPr != nil {
				if span := tcPr.child("gridSpan"); span != nil {
					cell.Attr = append(cell.Attr, html.Attribute{Key: "colspan", Val: span.attr("val")})
				}
			}
			for k := range tc.Nodes {
				switch p := &tc.Nodes[k]; p.XMLName.Local {
				case "p":
					kids, _ := w.inline(p.Nodes)
					if len(kids) == 0 {
						continue
					}
					para := element(atom.P)
					appendAll(para, kids)
					cell.AppendChild(para)
				case "tbl":
					cell.AppendChild(w.table(p))
				}
			}
			row.AppendChild(cell)
		}
		table.AppendChild(row)
	}
	return table
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func appendAll(parent *html.Node, children []*html.Node) {
	for _, c := range children {
		parent.AppendChild(c)
	}
}
