package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"golang.org/x/net/html"
)

// Below this many words the readability result is assumed to be a stripped
// shell and the DOM walker fallback is used instead.
const readabilityMinWords = 50

const maxFetchBytes = 5 << 20

// Fetcher downloads a page and extracts its readable article text for use
// as generation input.
type Fetcher struct {
	Client *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch downloads pageURL and returns the extracted title and text.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (title, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("content: create request: %w", err)
	}
	req.Header.Set("User-Agent", "marketer-service/1.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("content: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", "", fmt.Errorf("content: fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", "", fmt.Errorf("content: read body of %s: %w", pageURL, err)
	}

	title, text = extractContent(data, pageURL)
	if text == "" {
		return "", "", fmt.Errorf("content: no readable text extracted from %s", pageURL)
	}
	return title, text, nil
}

// extractContent tries readability first (Mozilla's Readability algorithm)
// and falls back to a plain DOM walker when it produces too little text.
func extractContent(data []byte, pageURL string) (title, text string) {
	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err == nil && article.Node != nil {
		var buf bytes.Buffer
		_ = article.RenderText(&buf)
		extracted := normalizeText(buf.String())
		if len(strings.Fields(extracted)) >= readabilityMinWords {
			return article.Title(), extracted
		}
	}

	node, parseErr := html.Parse(bytes.NewReader(data))
	if parseErr != nil {
		return "", ""
	}
	return extractTitle(node), extractReadableText(node)
}

func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := extractTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// extractReadableText collects text nodes, skipping script/style/nav chrome.
func extractReadableText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "script", "style", "noscript", "nav", "header", "footer", "iframe":
				return
			}
		}
		if node.Type == html.TextNode {
			if trimmed := strings.TrimSpace(node.Data); trimmed != "" {
				sb.WriteString(trimmed)
				sb.WriteString(" ")
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return normalizeText(sb.String())
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)

func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = whitespaceRun.ReplaceAllString(strings.TrimSpace(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
