package pubdate

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/pubfilter/internal/extract"
)

// metaKeys are matched against a <meta> tag's name, property, itemprop or
// http-equiv attribute, case-insensitively, in priority order.
var metaKeys = []string{
	"article:published_time",
	"og:article:published_time",
	"og:published_time",
	"published_time",
	"datepublished",
	"article.published",
	"publish-date",
	"publish_date",
	"publishdate",
	"pubdate",
	"dc.date.issued",
	"dc.date",
	"dcterms.issued",
	"dcterms.created",
	"dcterms.date",
	"citation_publication_date",
	"citation_online_date",
	"citation_date",
	"sailthru.date",
	"parsely-pub-date",
	"date",
}

func fromMeta(in *input) (Date, bool) {
	doc := in.markup()
	if doc == nil {
		return Date{}, false
	}
	values := map[string][]string{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		for _, attr := range []string{"name", "property", "itemprop", "http-equiv"} {
			if key, ok := s.Attr(attr); ok {
				k := strings.ToLower(strings.TrimSpace(key))
				values[k] = append(values[k], content)
			}
		}
	})
	for _, key := range metaKeys {
		for _, v := range values[key] {
			if d, ok := ParseDate(v); ok {
				return d, true
			}
		}
	}
	return Date{}, false
}

// jsonLDField pulls a date field out of a block that does not decode as JSON.
var jsonLDField = regexp.MustCompile(`"(datePublished|dateCreated)"\s*:\s*"([^"]+)"`)

func fromJSONLD(in *input) (Date, bool) {
	doc := in.markup()
	if doc == nil {
		return Date{}, false
	}
	var found Date
	var ok bool
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		if !strings.Contains(strings.ToLower(typ), "ld+json") {
			return true
		}
		found, ok = dateFromJSONLD(s.Text())
		return !ok
	})
	return found, ok
}

// dateFromJSONLD prefers datePublished over dateCreated anywhere in the block,
// including nested objects, arrays and @graph lists.
func dateFromJSONLD(block string) (Date, bool) {
	block = strings.TrimSpace(block)
	block = strings.TrimPrefix(block, "<!--")
	block = strings.TrimSuffix(block, "-->")
	block = strings.TrimPrefix(strings.TrimSpace(block), "//<![CDATA[")
	block = strings.TrimSuffix(strings.TrimSpace(block), "//]]>")

	var v any
	if err := json.Unmarshal([]byte(block), &v); err != nil {
		for _, field := range []string{"datePublished", "dateCreated"} {
			for _, m := range jsonLDField.FindAllStringSubmatch(block, -1) {
				if m[1] != field {
					continue
				}
				if d, ok := ParseDate(m[2]); ok {
					return d, true
				}
			}
		}
		return Date{}, false
	}
	for _, field := range []string{"datePublished", "dateCreated"} {
		if d, ok := walkJSONLD(v, field); ok {
			return d, true
		}
	}
	return Date{}, false
}

func walkJSONLD(v any, field string) (Date, bool) {
	switch t := v.(type) {
	case map[string]any:
		if raw, ok := t[field]; ok {
			if d, ok := jsonDateValue(raw); ok {
				return d, true
			}
		}
		if g, ok := t["@graph"]; ok {
			if d, ok := walkJSONLD(g, field); ok {
				return d, true
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			if k != "@graph" && k != field {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			if d, ok := walkJSONLD(t[k], field); ok {
				return d, true
			}
		}
	case []any:
		for _, child := range t {
			if d, ok := walkJSONLD(child, field); ok {
				return d, true
			}
		}
	}
	return Date{}, false
}

func jsonDateValue(raw any) (Date, bool) {
	switch t := raw.(type) {
	case string:
		return ParseDate(t)
	case []any:
		for _, x := range t {
			if d, ok := jsonDateValue(x); ok {
				return d, true
			}
		}
	case map[string]any:
		// {"@value": "2024-01-02"} / {"@type": "Date", "@value": ...}
		if s, ok := t["@value"].(string); ok {
			return ParseDate(s)
		}
	}
	return Date{}, false
}

const timeAttrSelector = `time[datetime], [itemprop="datePublished"], [data-published], [data-publish-date], abbr.published[title]`

func fromTimeAttr(in *input) (Date, bool) {
	doc := in.markup()
	if doc == nil {
		return Date{}, false
	}
	var found Date
	var ok bool
	doc.Find("body").Find(timeAttrSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"datetime", "content", "data-published", "data-publish-date", "title"} {
			v, has := s.Attr(attr)
			if !has {
				continue
			}
			if found, ok = ParseDate(v); ok {
				return false
			}
		}
		return true
	})
	return found, ok
}

func fromMarkupText(in *input) (Date, bool) {
	if doc := in.markup(); doc != nil {
		text := extract.FromNode(in.root).Text
		if d, ok := FindInText(extract.Prefix(text, textPrefixChars)); ok {
			return d, true
		}
	}
	return FindInText(extract.StrippedMarkup(in.doc.Body, markupPrefixChars))
}

var (
	classHints = []string{"date", "time", "publish", "posted", "byline", "meta"}
	dateLabel  = regexp.MustCompile(`(?i)^\s*(?:published|posted|updated|date|last review date|last reviewed)\s*:?\s*$`)
)

// maxHintText keeps heuristics from matching over whole page sections.
const maxHintText = 200

func fromClassHints(in *input) (Date, bool) {
	doc := in.markup()
	if doc == nil {
		return Date{}, false
	}
	var found Date
	var ok bool
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !hasDateHint(s) && !dateLabel.MatchString(s.Prev().Text()) {
			return true
		}
		text := strings.TrimSpace(s.Text())
		if text == "" || len(text) > maxHintText {
			return true
		}
		d, hit := FindInText(text)
		if hit && in.plausible(d) {
			found, ok = d, true
			return false
		}
		return true
	})
	return found, ok
}

func hasDateHint(s *goquery.Selection) bool {
	for _, attr := range []string{"class", "id"} {
		v, ok := s.Attr(attr)
		if !ok {
			continue
		}
		v = strings.ToLower(v)
		for _, h := range classHints {
			if strings.Contains(v, h) {
				return true
			}
		}
	}
	return false
}
