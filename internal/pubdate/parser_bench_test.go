package pubdate

import (
	"strings"
	"testing"
)

func BenchmarkExtract(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("<html><head><title>bench</title></head><body><main>")
	for i := 0; i < 300; i++ {
		sb.WriteString("<p>Nothing dated in this paragraph, just words and more words.</p>")
	}
	sb.WriteString(`<p class="byline">Posted on March 5, 2024</p></main></body></html>`)
	late := Document{Kind: KindMarkup, URL: "https://example.com/story", Body: []byte(sb.String())}
	early := Document{Kind: KindMarkup, URL: "https://example.com/story", Body: []byte(`<html><head><meta name="date" content="2024-03-05"></head></html>`)}

	b.Run("meta", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Parser{}.Extract(early)
		}
	})
	b.Run("class-hint", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = Parser{}.Extract(late)
		}
	})
}
