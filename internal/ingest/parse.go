package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mlbb-ai/coach/internal/knowledge"
)

// maxSectionChars splits very long sections so a single passage stays well
// inside the assembler's evidence budget.
const maxSectionChars = 2000

// ParseGuide extracts knowledge documents from one guide HTML page.
//
// The expected shape is the academy export format: an h1 with the subject
// name, followed by h2 sections with paragraph and list content. Each
// section becomes one document (split when oversized); pages with no
// sections yield a single document from the page body.
func ParseGuide(r io.Reader, partition knowledge.Partition, source string) ([]knowledge.Document, error) {
	if !partition.Valid() {
		return nil, fmt.Errorf("%w: %q", knowledge.ErrUnknownPartition, partition)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", source, err)
	}

	subject := normalize(doc.Find("h1").First().Text())
	if subject == "" {
		subject = normalize(doc.Find("title").First().Text())
	}

	var docs []knowledge.Document
	doc.Find("h2").Each(func(_ int, heading *goquery.Selection) {
		section := normalize(heading.Text())
		body := sectionText(heading)
		if body == "" {
			return
		}
		for n, chunk := range split(body, maxSectionChars) {
			docs = append(docs, knowledge.Document{
				ID:        documentID(partition, subject, section, n),
				Partition: partition,
				Content:   chunk,
				Metadata: map[string]string{
					"subject": subject,
					"section": section,
					"source":  source,
				},
			})
		}
	})

	// No h2 structure: index the whole body as one subject document.
	if len(docs) == 0 {
		body := normalize(doc.Find("body").Text())
		if body == "" {
			return nil, fmt.Errorf("no indexable content in %s", source)
		}
		for n, chunk := range split(body, maxSectionChars) {
			docs = append(docs, knowledge.Document{
				ID:        documentID(partition, subject, "overview", n),
				Partition: partition,
				Content:   chunk,
				Metadata: map[string]string{
					"subject": subject,
					"source":  source,
				},
			})
		}
	}
	return docs, nil
}

// sectionText collects the text between a heading and the next h2.
func sectionText(heading *goquery.Selection) string {
	var parts []string
	for sel := heading.Next(); sel.Length() > 0; sel = sel.Next() {
		if goquery.NodeName(sel) == "h2" {
			break
		}
		if t := normalize(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// documentID builds a stable id so re-ingestion upserts instead of
// duplicating.
func documentID(partition knowledge.Partition, subject, section string, n int) string {
	id := fmt.Sprintf("%s/%s/%s", partition, slug(subject), slug(section))
	if n > 0 {
		id = fmt.Sprintf("%s.%d", id, n)
	}
	return id
}

// slug lowercases and dashes a title for use in ids.
func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "untitled"
	}
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// normalize collapses whitespace runs into single spaces.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// split cuts text into chunks of at most limit characters, breaking on
// whitespace where possible.
func split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], ' ')
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
