package application

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	maxSnippetLength = 200
	untitledPost     = "Untitled Post"
)

// MarkdownProcessingResult contains the results of processing a markdown document
type MarkdownProcessingResult struct {
	Title       string
	Snippet     string
	HTMLContent []byte
}

// relativeLinkTransformer rewrites relative links and images so they resolve against the blog's base URL
type relativeLinkTransformer struct {
	baseURL string
}

func (t *relativeLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := n.(type) {
		case *ast.Image:
			if dest := string(v.Destination); isRelativeLink(dest) {
				v.Destination = []byte(t.baseURL + "/images/" + path.Base(dest))
			}
		case *ast.Link:
			if dest := string(v.Destination); isRelativeLink(dest) {
				// posts link to each other by source file name
				destFile := path.Base(dest)
				destFile = strings.TrimSuffix(destFile, ".md")
				destFile = strings.TrimSuffix(destFile, ".html")
				v.Destination = []byte(t.baseURL + "/posts/" + destFile)
			}
		}

		return ast.WalkContinue, nil
	})
}

func isRelativeLink(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") {
		return false
	}

	if strings.HasPrefix(dest, "/") {
		return !strings.HasPrefix(dest, "//")
	}

	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}

	// anything with a scheme (https:, mailto:, data:)
	return !strings.Contains(dest, ":")
}

// MarkdownRenderer defines the interface for converting markdown to HTML.
type MarkdownRenderer interface {
	Render(markdown []byte) (*MarkdownProcessingResult, error)
}

type MarkdownRendererImpl struct {
	renderer goldmark.Markdown
}

// NewMarkdownRenderer builds a GFM renderer. Relative links are left alone when baseURL is empty.
func NewMarkdownRenderer(baseURL string) MarkdownRenderer {
	parserOptions := []parser.Option{parser.WithAutoHeadingID()}
	if baseURL != "" {
		parserOptions = append(parserOptions, parser.WithASTTransformers(
			util.Prioritized(&relativeLinkTransformer{baseURL: strings.TrimSuffix(baseURL, "/")}, 100),
		))
	}

	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(parserOptions...),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &MarkdownRendererImpl{
		renderer: renderer,
	}
}

func (r *MarkdownRendererImpl) Render(markdown []byte) (*MarkdownProcessingResult, error) {
	var buf bytes.Buffer
	if err := r.renderer.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	return &MarkdownProcessingResult{
		Title:       extractPostTitle(markdown),
		Snippet:     extractSnippet(markdown),
		HTMLContent: buf.Bytes(),
	}, nil
}

func extractPostTitle(markdown []byte) string {
	firstLine, _, _ := strings.Cut(string(markdown), "\n")
	title, found := strings.CutPrefix(strings.TrimSpace(firstLine), "# ")
	if !found {
		return untitledPost
	}

	return strings.TrimSpace(title)
}

func extractSnippet(markdown []byte) string {
	var paragraphLines []string

	for _, line := range strings.Split(string(markdown), "\n") {
		trimmed := strings.TrimSpace(line)

		// headings before the first paragraph are skipped, after it they end it
		if strings.HasPrefix(trimmed, "#") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		if trimmed == "" {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		// code blocks, rules, lists and tables
		if strings.HasPrefix(trimmed, "```") ||
			strings.HasPrefix(trimmed, "---") ||
			strings.HasPrefix(trimmed, "***") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "+ ") ||
			strings.HasPrefix(trimmed, "|") {
			if len(paragraphLines) > 0 {
				break
			}
			continue
		}

		paragraphLines = append(paragraphLines, trimmed)
	}

	if len(paragraphLines) == 0 {
		return ""
	}

	snippet := strings.Join(paragraphLines, " ")

	// maxSnippetLength counts characters, not bytes
	if utf8.RuneCountInString(snippet) > maxSnippetLength {
		snippet = string([]rune(snippet)[:maxSnippetLength])
		if lastSpace := strings.LastIndexAny(snippet, " \t"); lastSpace > 0 {
			snippet = snippet[:lastSpace]
		}
		snippet += "..."
	}

	return snippet
}
