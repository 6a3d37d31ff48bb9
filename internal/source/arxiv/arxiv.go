// Package arxiv implements the document source against the arXiv Atom API.
// Search queries the export API for matching papers; Fetch downloads the PDF
// and extracts its plain text. Every failure is scoped to one document so
// the ingestion stage can skip it and continue.
package arxiv

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"paperqa/internal/domain"
)

const defaultBaseURL = "http://export.arxiv.org/api/query"

// Client talks to the arXiv export API.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config configures the arXiv client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates an arXiv source client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: t},
	}
}

// Atom feed shapes for the arXiv API response.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []author `xml:"author"`
	Links     []link   `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// Search queries arXiv for papers matching the topic and returns up to limit
// references, in API relevance order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.DocumentRef, error) {
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", limit))
	f, err := c.query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("arxiv search: %w", err)
	}
	refs := make([]domain.DocumentRef, 0, len(f.Entries))
	for _, e := range f.Entries {
		refs = append(refs, domain.DocumentRef{
			ID:                entryID(e),
			Title:             collapseWhitespace(e.Title),
			FullTextAvailable: pdfLink(e) != "",
		})
	}
	return refs, nil
}

// Fetch downloads the paper behind ref and extracts its text. When a PDF is
// available its extracted text follows the abstract; otherwise the abstract
// alone is the paper text.
func (c *Client) Fetch(ctx context.Context, ref domain.DocumentRef) (*domain.Paper, error) {
	params := url.Values{}
	params.Set("id_list", ref.ID)
	params.Set("max_results", "1")
	f, err := c.query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("arxiv fetch %s: %w", ref.ID, err)
	}
	if len(f.Entries) == 0 {
		return nil, fmt.Errorf("arxiv fetch %s: no entry returned", ref.ID)
	}
	e := f.Entries[0]

	text := collapseWhitespace(e.Summary)
	pdfURL := pdfLink(e)
	if pdfURL != "" {
		body, err := c.download(ctx, pdfURL)
		if err != nil {
			return nil, fmt.Errorf("arxiv download %s: %w", ref.ID, err)
		}
		extracted, err := extractText(body)
		if err != nil {
			return nil, fmt.Errorf("arxiv extract %s: %w", ref.ID, err)
		}
		if extracted != "" {
			text = text + "\n\n" + extracted
		}
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, a.Name)
	}
	published, _ := time.Parse(time.RFC3339, e.Published)
	return &domain.Paper{
		Ref:       ref,
		Text:      text,
		Authors:   authors,
		Published: published,
		URL:       e.ID,
	}, nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &f, nil
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// sentencesPerParagraph groups the extracted sentence run into paragraphs.
// GetPlainText returns the whole document as one unbroken run; without
// re-inserted boundaries the downstream paragraph split would see the entire
// body as a single paragraph.
const sentencesPerParagraph = 5

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// extractText pulls plain text out of a PDF. The pdf library wants a file on
// disk, so the body is staged through a temp file.
func extractText(body []byte) (string, error) {
	tmp, err := os.CreateTemp("", "paperqa-*.pdf")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := tmp.Write(body); err != nil {
		return "", err
	}
	f, rdr, err := pdf.Open(tmp.Name())
	if err != nil {
		return "", err
	}
	defer f.Close()
	var buf bytes.Buffer
	b, err := rdr.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(&buf, b); err != nil {
		return "", err
	}
	return paragraphize(strings.TrimSpace(buf.String())), nil
}

// paragraphize rebuilds paragraph boundaries in a flat run of text by grouping
// consecutive sentences and separating the groups with blank lines. Text with
// no recognizable sentences passes through unchanged.
func paragraphize(text string) string {
	matches := sentencePattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	sentences := make([]string, 0, len(matches)+1)
	for _, m := range matches {
		sentences = append(sentences, collapseWhitespace(text[m[0]:m[1]]))
	}
	if tail := collapseWhitespace(text[matches[len(matches)-1][1]:]); tail != "" {
		sentences = append(sentences, tail)
	}
	var sb strings.Builder
	for i, s := range sentences {
		if i > 0 {
			if i%sentencesPerParagraph == 0 {
				sb.WriteString("\n\n")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// entryID strips the abs URL prefix, leaving the bare arXiv identifier.
func entryID(e entry) string {
	id := e.ID
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		id = id[i+len("/abs/"):]
	}
	return id
}

func pdfLink(e entry) string {
	for _, l := range e.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return l.Href
		}
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
