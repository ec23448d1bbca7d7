package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"invoice-studio/internal/render"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageMargin = 12.0
	pageWidth  = 210.0
	bodyWidth  = pageWidth - 2*pageMargin
	lineHeight = 5.0
)

// FPDFConverter lays out the document's View natively, without a browser.
// With a UTF-8 TrueType font every glyph renders as-is; with the built-in
// Helvetica text is mapped to cp1252 and the few symbols outside it are
// spelled out.
type FPDFConverter struct {
	fontPath string
}

func NewFPDFConverter(fontPath string) *FPDFConverter {
	return &FPDFConverter{fontPath: fontPath}
}

func (f *FPDFConverter) Backend() string { return "fpdf" }

func (f *FPDFConverter) Convert(ctx context.Context, doc *render.Document) ([]byte, error) {
	if doc == nil || doc.View == nil {
		return nil, permanent(f.Backend(), ErrEmptyDocument)
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(f.Backend(), err, true)
	}

	l := newLayout(f.fontPath, doc.Template)
	l.draw(doc.View)

	if err := l.pdf.Error(); err != nil {
		return nil, permanent(f.Backend(), err)
	}
	var buf bytes.Buffer
	if err := l.pdf.Output(&buf); err != nil {
		return nil, permanent(f.Backend(), err)
	}
	return buf.Bytes(), nil
}

type layout struct {
	pdf      *gofpdf.Fpdf
	family   string
	text     func(string) string
	template string
	images   int
}

var latinFallback = strings.NewReplacer("₫", "VND", "₹", "Rs ", "√", "x")

func newLayout(fontPath, template string) *layout {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)

	l := &layout{pdf: pdf, template: template}
	if fontPath != "" {
		pdf.AddUTF8Font("body", "", fontPath)
		pdf.AddUTF8Font("body", "B", fontPath)
		l.family = "body"
		l.text = func(s string) string { return s }
	} else {
		l.family = "Helvetica"
		tr := pdf.UnicodeTranslatorFromDescriptor("")
		l.text = func(s string) string { return tr(latinFallback.Replace(s)) }
	}
	pdf.AddPage()
	return l
}

func (l *layout) font(style string, size float64) {
	l.pdf.SetFont(l.family, style, size)
}

func (l *layout) draw(v *render.View) {
	l.accentBar(string(v.Accent))

	// Classic keeps the logo on the right; the other layouts lead with it.
	logoLeft := l.template != "Classic"
	// Clean and Default carry the date/terms/balance block in the header.
	metaInHeader := l.template == "Clean" || l.template == "Default"

	top := l.pdf.GetY()
	senderX := pageMargin
	if logoLeft && l.image(string(v.Logo), pageMargin, top, 30) {
		senderX = pageMargin + 35
	}
	l.party(v.From, senderX, top, 18, 95)
	headerBottom := l.pdf.GetY()
	if !logoLeft && l.image(string(v.Logo), pageWidth-pageMargin-30, top, 30) {
		headerBottom = max(headerBottom, top+30)
	}
	if metaInHeader {
		l.pdf.SetY(top)
		l.meta(v)
		headerBottom = max(headerBottom, l.pdf.GetY())
	}
	l.pdf.SetY(headerBottom + 4)
	l.rule()

	clientTop := l.pdf.GetY() + 2
	l.pdf.SetXY(pageMargin, clientTop)
	l.font("", 9)
	l.pdf.CellFormat(0, lineHeight, "Bill To", "", 1, "L", false, 0, "")
	l.party(v.BillTo, pageMargin, l.pdf.GetY(), 11, 95)
	clientBottom := l.pdf.GetY()

	switch {
	case !metaInHeader:
		l.pdf.SetY(clientTop)
		l.meta(v)
		clientBottom = max(clientBottom, l.pdf.GetY())
		l.pdf.SetY(clientBottom + 4)
		l.number(v, "L")
	case l.template == "Default":
		l.pdf.SetY(clientTop)
		l.number(v, "R")
		l.pdf.SetY(max(clientBottom, l.pdf.GetY()) + 4)
	default:
		l.pdf.SetY(clientBottom + 4)
		l.number(v, "L")
	}

	l.items(v)
	l.totals(v)
	l.notes(v)
	l.signature(v)
}

func (l *layout) accentBar(hex string) {
	r, g, b := parseHex(hex)
	l.pdf.SetFillColor(r, g, b)
	l.pdf.Rect(pageMargin, pageMargin-4, bodyWidth, 1.2, "F")
	l.pdf.SetFillColor(255, 255, 255)
	l.pdf.SetY(pageMargin)
}

func (l *layout) rule() {
	y := l.pdf.GetY()
	l.pdf.SetDrawColor(221, 221, 221)
	l.pdf.Line(pageMargin, y, pageWidth-pageMargin, y)
}

func (l *layout) party(p render.PartyView, x, y, nameSize, width float64) {
	l.pdf.SetXY(x, y)
	l.font("B", nameSize)
	l.pdf.MultiCell(width, nameSize*0.5, l.text(p.Name), "", "L", false)
	l.font("", 9)
	for _, f := range p.Lines {
		l.pdf.SetX(x)
		l.pdf.MultiCell(width, lineHeight-0.5, l.text(f.Label+": "+f.Value), "", "L", false)
	}
}

func (l *layout) meta(v *render.View) {
	x := pageWidth - pageMargin - 60
	rows := [][2]string{{"Date:", v.Date}, {"Due:", v.Terms}, {"Balance Due:", v.BalanceDue}}
	for _, row := range rows {
		l.pdf.SetX(x)
		l.font("B", 9)
		l.pdf.CellFormat(60, lineHeight-1, l.text(row[0]), "", 2, "R", false, 0, "")
		l.font("", 9)
		l.pdf.CellFormat(60, lineHeight, l.text(row[1]), "", 2, "R", false, 0, "")
	}
}

func (l *layout) number(v *render.View, align string) {
	x := pageMargin
	if align == "R" {
		x = pageWidth - pageMargin - 60
	}
	l.pdf.SetX(x)
	l.font("B", 9)
	l.pdf.CellFormat(60, lineHeight, l.text(strings.ToUpper(v.Title)), "", 2, align, false, 0, "")
	l.font("", 10)
	l.pdf.CellFormat(60, lineHeight, l.text(v.InvoiceNumber), "", 1, align, false, 0, "")
	l.pdf.Ln(4)
}

var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"DESCRIPTION", 76, "L"},
	{"RATE", 30, "R"},
	{"QTY", 20, "R"},
	{"AMOUNT", 34, "R"},
	{"TAXABLE", 26, "C"},
}

func (l *layout) items(v *render.View) {
	dark := l.template != "Classic"
	l.pdf.SetDrawColor(221, 221, 221)
	if dark {
		l.pdf.SetFillColor(45, 45, 45)
		l.pdf.SetTextColor(255, 255, 255)
	} else {
		l.pdf.SetTextColor(45, 45, 45)
	}
	l.font("B", 8)
	for _, c := range itemColumns {
		l.pdf.CellFormat(c.width, 7, c.title, "B", 0, c.align, dark, 0, "")
	}
	l.pdf.Ln(-1)
	l.pdf.SetTextColor(51, 51, 51)
	l.pdf.SetFillColor(255, 255, 255)

	l.font("", 9)
	for _, it := range v.Items {
		desc := it.Description
		if it.Details != "" {
			desc += "\n" + it.Details
		}
		lines := l.pdf.SplitLines([]byte(l.text(desc)), itemColumns[0].width-2)
		h := float64(max(len(lines), 1)) * lineHeight
		x, y := l.pdf.GetXY()
		l.pdf.MultiCell(itemColumns[0].width, lineHeight, l.text(desc), "B", "L", false)
		l.pdf.SetXY(x+itemColumns[0].width, y)

		mark := ""
		if it.Taxable {
			mark = "√"
		}
		cells := []string{it.Rate, it.Quantity, it.Amount, mark}
		for i, val := range cells {
			c := itemColumns[i+1]
			l.pdf.CellFormat(c.width, h, l.text(val), "B", 0, c.align, false, 0, "")
		}
		l.pdf.SetXY(pageMargin, y+h)
	}
	l.pdf.Ln(4)
}

func (l *layout) totals(v *render.View) {
	x := pageWidth - pageMargin - 80
	row := func(label, amount string, strong bool) {
		l.pdf.SetX(x)
		border := ""
		if strong {
			l.font("B", 10)
			border = "T"
		} else {
			l.font("", 10)
		}
		l.pdf.CellFormat(45, 6, l.text(label), border, 0, "L", false, 0, "")
		l.pdf.CellFormat(35, 6, l.text(amount), border, 1, "R", false, 0, "")
	}
	l.pdf.SetDrawColor(0, 0, 0)
	row("Subtotal", v.Subtotal, false)
	if v.Discount != nil {
		row(v.Discount.Label, v.Discount.Amount, false)
	}
	if v.Tax != nil {
		row(v.Tax.Label, v.Tax.Amount, false)
	}
	row("Total", v.Total, true)
	row("Balance Due", v.BalanceDue, true)
}

func (l *layout) notes(v *render.View) {
	if v.Notes == "" {
		return
	}
	l.pdf.Ln(8)
	l.rule()
	l.pdf.Ln(2)
	l.font("B", 9)
	l.pdf.CellFormat(0, lineHeight, "NOTES", "", 1, "L", false, 0, "")
	l.font("", 9)
	l.pdf.MultiCell(0, lineHeight-0.5, l.text(v.Notes), "", "L", false)
}

func (l *layout) signature(v *render.View) {
	if v.Signature == "" {
		return
	}
	l.pdf.Ln(10)
	y := l.pdf.GetY()
	if l.image(string(v.Signature), pageWidth/2-25, y, 50) {
		l.pdf.SetY(y + 27)
	}
	l.font("", 9)
	l.pdf.CellFormat(0, lineHeight, l.text("DATE SIGNED: "+v.SignedOn), "", 1, "C", false, 0, "")
}

// image draws a data:image URL scaled to width w, keeping the aspect ratio
// and capping the height at w. It reports whether anything was drawn;
// unsupported or corrupt payloads are skipped.
func (l *layout) image(dataURL string, x, y, w float64) bool {
	kind, payload, ok := decodeDataURL(dataURL)
	if !ok {
		return false
	}
	l.images++
	name := "img" + strconv.Itoa(l.images)
	info := l.pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: kind}, bytes.NewReader(payload))
	if info == nil || l.pdf.Err() {
		l.pdf.ClearError()
		return false
	}
	iw, ih := info.Extent()
	h := w * ih / iw
	if h > w {
		w, h = w*w/h, w
	}
	l.pdf.ImageOptions(name, x, y, w, h, false, gofpdf.ImageOptions{ImageType: kind}, 0, "")
	return true
}

func decodeDataURL(s string) (kind string, payload []byte, ok bool) {
	meta, data, found := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return "", nil, false
	}
	switch strings.TrimSuffix(meta, ";base64") {
	case "image/png":
		kind = "PNG"
	case "image/jpeg", "image/jpg":
		kind = "JPG"
	case "image/gif":
		kind = "GIF"
	default:
		return "", nil, false
	}
	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, false
	}
	return kind, payload, true
}

// parseHex reads #rgb, #rgba, #rrggbb or #rrggbbaa; alpha is ignored.
// Anything else yields the neutral border gray.
func parseHex(s string) (int, int, int) {
	s = strings.TrimPrefix(s, "#")
	switch len(s) {
	case 3, 4:
		s = fmt.Sprintf("%c%c%c%c%c%c", s[0], s[0], s[1], s[1], s[2], s[2])
	case 6, 8:
		s = s[:6]
	default:
		return 221, 221, 221
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 221, 221, 221
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
