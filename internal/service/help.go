package service

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/templui/codekeeper/internal/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrHelpPageNotFound = errors.New("help page not found")

type HelpPage struct {
	Title       string
	Slug        string
	Order       int
	Content     string
	LastUpdated string
}

// HelpService serves markdown pages from the help directory of a content FS.
type HelpService struct {
	content fs.FS
	dir     string
	parser  *markdown.Parser
}

func NewHelpService(content fs.FS) *HelpService {
	return &HelpService{
		content: content,
		dir:     "help",
		parser:  markdown.NewParser(),
	}
}

// Page loads one page. Pages are read on every call so edits show up without a restart.
func (s *HelpService) Page(slug string) (*HelpPage, error) {
	if slug == "" || strings.ContainsAny(slug, `/\.`) {
		return nil, ErrHelpPageNotFound
	}

	page, err := s.loadPage(slug)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrHelpPageNotFound
	}
	return page, err
}

// Pages lists every page ordered by the "order" frontmatter key, then title.
func (s *HelpService) Pages() ([]*HelpPage, error) {
	entries, err := fs.ReadDir(s.content, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read help directory: %w", err)
	}

	var pages []*HelpPage
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		page, err := s.loadPage(strings.TrimSuffix(entry.Name(), ".md"))
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Order != pages[j].Order {
			return pages[i].Order < pages[j].Order
		}
		return pages[i].Title < pages[j].Title
	})
	return pages, nil
}

func (s *HelpService) loadPage(slug string) (*HelpPage, error) {
	content, err := fs.ReadFile(s.content, path.Join(s.dir, slug+".md"))
	if err != nil {
		return nil, err
	}

	doc, err := s.parser.Render(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse help page %s: %w", slug, err)
	}

	title := doc.String("title")
	if title == "" {
		title = cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
	}

	return &HelpPage{
		Title:       title,
		Slug:        slug,
		Order:       doc.Int("order"),
		Content:     string(doc.HTML),
		LastUpdated: parseDate(doc.Meta["lastUpdated"]),
	}, nil
}

func parseDate(value any) string {
	var dateStr string

	switch v := value.(type) {
	case string:
		dateStr = v
	case time.Time:
		return v.Format("January 2, 2006")
	default:
		return ""
	}

	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"Jan 2, 2006",
		"January 2, 2006",
		time.RFC3339,
	}

	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t.Format("January 2, 2006")
		}
	}

	return dateStr
}
