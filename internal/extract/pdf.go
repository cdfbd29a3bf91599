package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFDocument holds the date-relevant parts of a PDF: raw Info dictionary
// timestamps (PDF "D:YYYYMMDDHHmmSS..." strings, or XMP ISO values) and the
// text of the first page.
type PDFDocument struct {
	CreationDate  string
	ModDate       string
	FirstPageText string
}

// FromPDF reads a PDF body. Documents the reader rejects, such as truncated
// files without a cross-reference table, are scanned byte-wise for
// uncompressed metadata and text operators instead.
func FromPDF(input []byte) PDFDocument {
	// Whatever the reader recovered before failing is still usable.
	doc, _ := readPDF(input)
	if doc.CreationDate == "" && doc.ModDate == "" {
		doc.CreationDate, doc.ModDate = scanInfo(input)
	}
	if strings.TrimSpace(doc.FirstPageText) == "" {
		doc.FirstPageText = scanText(input)
	}
	doc.FirstPageText = collapseSpaces(doc.FirstPageText)
	return doc
}

func readPDF(input []byte) (doc PDFDocument, err error) {
	// The reader panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return PDFDocument{}, fmt.Errorf("open pdf: %w", err)
	}
	info := r.Trailer().Key("Info")
	doc.CreationDate = strings.TrimSpace(info.Key("CreationDate").Text())
	doc.ModDate = strings.TrimSpace(info.Key("ModDate").Text())
	if r.NumPage() < 1 {
		return doc, nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return doc, nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return doc, fmt.Errorf("page text: %w", err)
	}
	doc.FirstPageText = text
	return doc, nil
}

var (
	rawCreation  = regexp.MustCompile(`/CreationDate\s*\(([^)]*)\)`)
	rawMod       = regexp.MustCompile(`/ModDate\s*\(([^)]*)\)`)
	xmpCreate    = regexp.MustCompile(`<xmp:CreateDate>([^<]+)</xmp:CreateDate>`)
	xmpModify    = regexp.MustCompile(`<xmp:ModifyDate>([^<]+)</xmp:ModifyDate>`)
	textShow     = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*Tj`)
	textArray    = regexp.MustCompile(`\[((?:\\.|[^\]])*)\]\s*TJ`)
	arrayStrings = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
)

func scanInfo(input []byte) (creation, mod string) {
	if m := rawCreation.FindSubmatch(input); m != nil {
		creation = string(m[1])
	} else if m := xmpCreate.FindSubmatch(input); m != nil {
		creation = string(m[1])
	}
	if m := rawMod.FindSubmatch(input); m != nil {
		mod = string(m[1])
	} else if m := xmpModify.FindSubmatch(input); m != nil {
		mod = string(m[1])
	}
	return strings.TrimSpace(creation), strings.TrimSpace(mod)
}

// scanText collects literal strings shown by Tj/TJ operators in order of
// appearance. It stops once enough text for date matching has been seen.
func scanText(input []byte) string {
	const enough = 4000
	type hit struct {
		at   int
		text string
	}
	var hits []hit
	for _, m := range textShow.FindAllSubmatchIndex(input, -1) {
		hits = append(hits, hit{at: m[0], text: unescapePDFString(input[m[2]:m[3]])})
	}
	for _, m := range textArray.FindAllSubmatchIndex(input, -1) {
		var parts []string
		for _, s := range arrayStrings.FindAllSubmatch(input[m[2]:m[3]], -1) {
			parts = append(parts, unescapePDFString(s[1]))
		}
		hits = append(hits, hit{at: m[0], text: strings.Join(parts, "")})
	}
	// merge the two match lists back into document order
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].at < hits[j-1].at; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	var b strings.Builder
	for _, h := range hits {
		b.WriteString(h.text)
		b.WriteByte('\n')
		if b.Len() >= enough {
			break
		}
	}
	return b.String()
}

func unescapePDFString(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}
