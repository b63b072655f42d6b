package service

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const sitemapXMLNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// publicRoutes are the static pages crawlers may index. Everything under
// /app is private and stays out.
var publicRoutes = []struct {
	Path       string
	Priority   string
	ChangeFreq string
}{
	{"/", "1.0", "weekly"},
	{"/auth", "0.3", "monthly"},
	{"/auth/signup", "0.3", "monthly"},
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type SitemapService struct {
	helpService *HelpService
	baseURL     string
	now         func() time.Time
}

func NewSitemapService(helpService *HelpService, baseURL string) *SitemapService {
	return &SitemapService{
		helpService: helpService,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		now:         time.Now,
	}
}

// GenerateSitemap lists the public pages and every help page.
func (s *SitemapService) GenerateSitemap() ([]byte, error) {
	today := s.now().UTC().Format("2006-01-02")

	set := urlSet{XMLNS: sitemapXMLNS}
	for _, route := range publicRoutes {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.baseURL + route.Path,
			LastMod:    today,
			ChangeFreq: route.ChangeFreq,
			Priority:   route.Priority,
		})
	}

	pages, err := s.helpService.Pages()
	if err != nil {
		return nil, fmt.Errorf("failed to list help pages: %w", err)
	}
	for _, page := range pages {
		lastMod := today
		if t, err := time.Parse("January 2, 2006", page.LastUpdated); err == nil {
			lastMod = t.Format("2006-01-02")
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        s.baseURL + "/help/" + page.Slug,
			LastMod:    lastMod,
			ChangeFreq: "monthly",
			Priority:   "0.5",
		})
	}

	output, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return []byte(xml.Header + string(output)), nil
}

// Robots keeps crawlers out of the signed-in app.
func (s *SitemapService) Robots() []byte {
	return []byte("User-agent: *\nAllow: /\nDisallow: /app\nDisallow: /auth/google\n\nSitemap: " + s.baseURL + "/sitemap.xml\n")
}
