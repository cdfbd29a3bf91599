// Package pubdate resolves a best-effort publication date from a fetched
// document. Everything here is pure: no network, no clock reads beyond the
// injectable Now used to bound plausible years.
package pubdate

import (
	"bytes"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/pubfilter/internal/extract"
)

// Kind tells markup and PDF documents apart.
type Kind int

const (
	KindMarkup Kind = iota
	KindPDF
)

func (k Kind) String() string {
	if k == KindPDF {
		return "pdf"
	}
	return "markup"
}

// Document is the parser input: a body, how it was classified and the URL it
// was retrieved from.
type Document struct {
	Kind Kind
	URL  string
	Body []byte
}

// Strategy names, reported with every successful extraction.
const (
	StrategyMeta      = "meta"
	StrategyJSONLD    = "jsonld"
	StrategyTimeAttr  = "time-attr"
	StrategyURL       = "url"
	StrategyText      = "text"
	StrategyClassHint = "class-hint"
	StrategyPDFMeta   = "pdf-meta"
	StrategyPDFText   = "pdf-text"
)

// Result is a resolved date and the strategy that produced it.
type Result struct {
	Date     Date
	Strategy string
}

const (
	// textPrefixChars bounds free-text matching over extracted text.
	textPrefixChars = 2000
	// markupPrefixChars bounds the fallback scan over tag-stripped markup.
	markupPrefixChars = 10000
	minPlausibleYear  = 2000
)

// Parser runs the strategy cascade. The zero value is ready to use.
type Parser struct {
	// Now bounds the plausible-year window of heuristic matches. Defaults to time.Now.
	Now func() time.Time
}

type strategy struct {
	name string
	fn   func(*input) (Date, bool)
}

// input carries one document through the cascade and memoises parsed forms.
type input struct {
	doc    Document
	now    time.Time
	parsed bool
	root   *html.Node
	gq     *goquery.Document
	pdf    *extract.PDFDocument
}

var markupCascade = []strategy{
	{StrategyMeta, fromMeta},
	{StrategyJSONLD, fromJSONLD},
	{StrategyTimeAttr, fromTimeAttr},
	{StrategyURL, fromDocumentURL},
	{StrategyText, fromMarkupText},
	{StrategyClassHint, fromClassHints},
}

var pdfCascade = []strategy{
	{StrategyPDFMeta, fromPDFMeta},
	{StrategyPDFText, fromPDFText},
	{StrategyURL, fromDocumentURL},
}

// Extract runs the cascade for doc's kind; the first strategy to produce a
// valid date wins.
func (p Parser) Extract(doc Document) (Result, bool) {
	in := &input{doc: doc, now: p.now()}
	for _, s := range cascadeFor(doc.Kind) {
		if d, ok := s.fn(in); ok {
			return Result{Date: d, Strategy: s.name}, true
		}
	}
	return Result{}, false
}

// Attempt is the result of one strategy in isolation.
type Attempt struct {
	Strategy string
	Date     Date
	OK       bool
}

// Explain runs every strategy of the cascade for doc, without stopping at the
// first success. The first OK attempt is what Extract returns.
func (p Parser) Explain(doc Document) []Attempt {
	in := &input{doc: doc, now: p.now()}
	cascade := cascadeFor(doc.Kind)
	out := make([]Attempt, 0, len(cascade))
	for _, s := range cascade {
		d, ok := s.fn(in)
		out = append(out, Attempt{Strategy: s.name, Date: d, OK: ok})
	}
	return out
}

func (p Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func cascadeFor(kind Kind) []strategy {
	if kind == KindPDF {
		return pdfCascade
	}
	return markupCascade
}

func (in *input) markup() *goquery.Document {
	if in.parsed {
		return in.gq
	}
	in.parsed = true
	root, err := html.Parse(bytes.NewReader(in.doc.Body))
	if err != nil || root == nil {
		return nil
	}
	in.root = root
	in.gq = goquery.NewDocumentFromNode(root)
	return in.gq
}

func (in *input) pdfDoc() *extract.PDFDocument {
	if in.pdf == nil {
		d := extract.FromPDF(in.doc.Body)
		in.pdf = &d
	}
	return in.pdf
}

func (in *input) plausible(d Date) bool {
	return d.Year >= minPlausibleYear && d.Year <= in.now.Year()+1
}

func fromDocumentURL(in *input) (Date, bool) {
	return FromURL(in.doc.URL)
}
