// Package content turns fetched pages into plain text for sentiment scoring.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// ErrNoText means neither extractor found readable text.
var ErrNoText = errors.New("no readable text on page")

// noiseSelectors never contribute readable text.
const noiseSelectors = "script, style, noscript, template, svg, iframe, nav, footer, header"

// Extract returns the readable text of an HTML document, collapsed to single
// spaces and truncated to maxBytes (0 means unlimited). Readability is tried
// first; the whole body text is the fallback.
func Extract(body []byte, pageURL string, maxBytes int) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}

	text := ""
	if article, err := readability.FromReader(bytes.NewReader(body), base); err == nil {
		text = collapse(article.TextContent)
	}
	if text == "" {
		text, err = bodyText(body)
		if err != nil {
			return "", err
		}
	}
	if text == "" {
		return "", ErrNoText
	}
	return truncate(text, maxBytes), nil
}

func bodyText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find(noiseSelectors).Remove()
	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	return collapse(sel.Text()), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most maxBytes without splitting a rune.
func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
