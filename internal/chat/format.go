package chat

import (
	"html"
	"html/template"
	"net/url"
	"strings"

	"github.com/lewas-lab/chatbot/internal/session"
)

const (
	NoSources  = "No sources available."
	NoDetails  = "No details available."
	timeLayout = "2006-01-02 15:04:05"
)

// FormatSources renders citations as an HTML list. A citation of the form
// "text - url" becomes a link with text as the label.
func FormatSources(sources []string) template.HTML {
	if len(sources) == 0 {
		return NoSources
	}

	var b strings.Builder
	b.WriteString("<ul>")
	for _, source := range sources {
		b.WriteString("<li>")
		b.WriteString(formatSource(source))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")

	return template.HTML(b.String())
}

func formatSource(source string) string {
	source = strings.TrimLeft(strings.TrimSpace(source), "*- ")

	cut := strings.LastIndex(source, " - ")
	if cut < 0 {
		return html.EscapeString(source)
	}

	text, link := source[:cut], strings.TrimSpace(source[cut+len(" - "):])
	link, ok := linkTarget(link)
	if !ok {
		return html.EscapeString(source)
	}

	return `<a href="` + html.EscapeString(link) + `" target="_blank" rel="noopener noreferrer">` +
		html.EscapeString(text) + `</a>`
}

// linkTarget accepts http(s) URLs, and bare hosts such as "www.x.org/page"
// which are linked over https. Any other scheme is rejected.
func linkTarget(raw string) (string, bool) {
	if isWebURL(raw) {
		return raw, true
	}
	if raw == "" || strings.ContainsAny(raw, " \t") {
		return "", false
	}
	if u, err := url.Parse(raw); err != nil || u.Scheme != "" {
		return "", false
	}

	candidate := "https://" + raw
	u, err := url.Parse(candidate)
	if err != nil || !hasDomainSuffix(u.Hostname()) || !isWebURL(candidate) {
		return "", false
	}
	return candidate, true
}

// hasDomainSuffix reports whether host ends in an alphabetic top-level label,
// which keeps version numbers and decimals from being linked.
func hasDomainSuffix(host string) bool {
	dot := strings.LastIndex(host, ".")
	if dot <= 0 || len(host)-dot-1 < 2 {
		return false
	}
	for _, r := range host[dot+1:] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FormatDetail renders the "View Details" block of an assistant message.
func FormatDetail(d session.TurnDetail) template.HTML {
	if d.Unavailable {
		return NoDetails
	}

	var b strings.Builder
	b.WriteString("<p><strong>Query ID:</strong> ")
	b.WriteString(html.EscapeString(d.QueryID))
	b.WriteString("</p><p><strong>Time:</strong> ")
	b.WriteString(d.CreatedAt.Format(timeLayout))
	b.WriteString("</p>")
	if d.Classification != "" {
		b.WriteString("<p><strong>Classification:</strong> ")
		b.WriteString(html.EscapeString(d.Classification))
		b.WriteString("</p>")
	}
	b.WriteString("<p><strong>Sources:</strong></p>")
	b.WriteString(string(FormatSources(d.Sources)))

	return template.HTML(b.String())
}
