package pubdate

import (
	"regexp"

	"github.com/hyperifyio/pubfilter/internal/extract"
)

var pdfDateRe = regexp.MustCompile(`^(?:D:)?(\d{4})(\d{2})(\d{2})`)

// ParsePDFDate reads a PDF date string ("D:YYYYMMDDHHmmSSOHH'mm'") or, for
// XMP metadata, an ISO timestamp.
func ParsePDFDate(s string) (Date, bool) {
	if m := pdfDateRe.FindStringSubmatch(s); m != nil {
		return dateFromParts(m[1], m[2], m[3])
	}
	return ParseDate(s)
}

func fromPDFMeta(in *input) (Date, bool) {
	doc := in.pdfDoc()
	for _, v := range []string{doc.CreationDate, doc.ModDate} {
		if d, ok := ParsePDFDate(v); ok {
			return d, true
		}
	}
	return Date{}, false
}

func fromPDFText(in *input) (Date, bool) {
	return FindInText(extract.Prefix(in.pdfDoc().FirstPageText, textPrefixChars))
}
