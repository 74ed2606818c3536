package crawler

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"inspectbot/internal/config"
	"inspectbot/internal/validation"
)

// ErrNoContent is returned when a popup holds no text worth storing.
var ErrNoContent = errors.New("popup has no content")

// InfoPopup selects one popup on an info page. An empty Topic is taken from
// the link that opens the popup; Section keeps only the table rows under the
// matching section header.
type InfoPopup struct {
	ID      string
	Topic   string
	Section string
}

// InfoPage is a script-rendered page holding guidance popups.
type InfoPage struct {
	Category string
	URL      string
	Popups   []InfoPopup
}

// InfoEntry is the text extracted from one popup.
type InfoEntry struct {
	Topic   string
	Details string
}

// InfoPagesFromConfig validates the configured info pages.
func InfoPagesFromConfig(cfg *config.YAMLConfig) ([]InfoPage, error) {
	var out []InfoPage
	for _, pc := range cfg.InfoPages {
		if strings.TrimSpace(pc.Category) == "" {
			return nil, fmt.Errorf("info page %q has no category", pc.URL)
		}
		if _, err := validation.ValidateURL(pc.URL); err != nil {
			return nil, fmt.Errorf("info page %s: %w", pc.Category, err)
		}
		page := InfoPage{Category: pc.Category, URL: pc.URL}
		for _, popup := range pc.Popups {
			if popup.ID == "" {
				return nil, fmt.Errorf("info page %s has a popup without id", pc.Category)
			}
			page.Popups = append(page.Popups, InfoPopup{ID: popup.ID, Topic: popup.Topic, Section: popup.Section})
		}
		out = append(out, page)
	}
	return out, nil
}

// ParseInfo extracts one popup from a rendered page. Relative detail links are
// resolved against pageURL.
func ParseInfo(r io.Reader, pageURL string, popup InfoPopup) (InfoEntry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return InfoEntry{}, fmt.Errorf("failed to parse html: %w", err)
	}
	base, _ := url.Parse(pageURL)
	return parseInfoPopup(doc, base, popup)
}

func parseInfoPopup(doc *html.Node, base *url.URL, popup InfoPopup) (InfoEntry, error) {
	node := findByID(doc, popup.ID)
	if node == nil {
		return InfoEntry{}, fmt.Errorf("%w: #%s", ErrNodeNotFound, popup.ID)
	}

	topic := popup.Topic
	if topic == "" {
		topic = popupLinkText(doc, popup.ID)
	}
	if topic == "" {
		topic = popup.ID
	}

	var details string
	if tables := findAll(node, atom.Table); len(tables) > 0 {
		details = formatInfoTable(tables[0], base, popup.Section)
	} else {
		body := node
		if wrap := findByClass(node, "answerWrap"); wrap != nil {
			body = wrap
		}
		details = strings.Join(blockLines(body), "\n")
	}
	if details == "" {
		return InfoEntry{}, fmt.Errorf("%w: #%s", ErrNoContent, popup.ID)
	}
	return InfoEntry{Topic: topic, Details: details}, nil
}

// questionNumber matches the "Q12." title rows of board popups.
var questionNumber = regexp.MustCompile(`^Q\d+\.`)

var detailLabel = regexp.MustCompile(`자세히\s*보기`)

// cleanInfoText drops "자세히 보기" labels, edge hyphens and repeated whitespace.
func cleanInfoText(s string) string {
	s = detailLabel.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, "- ")
}

// formatInfoTable renders a popup table as one line per row:
// "[header] value | value" for keyed rows and the bare text otherwise.
func formatInfoTable(table *html.Node, base *url.URL, section string) string {
	inSection := section == ""
	current := ""

	var lines []string
	for _, tr := range findAll(table, atom.Tr) {
		var cells []*html.Node
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		header := cellText(cells[0])
		if questionNumber.MatchString(header) {
			continue
		}

		if section != "" && len(cells) >= 2 {
			switch {
			case strings.Contains(header, section):
				inSection = true
				current = header
			case current != "":
				inSection = false
			}
		}
		if !inSection {
			continue
		}

		if len(cells) == 1 {
			if v := infoCell(cells[0], base); v != "" {
				lines = append(lines, v)
			}
			continue
		}
		var values []string
		for _, c := range cells[1:] {
			if v := infoCell(c, base); v != "" {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			lines = append(lines, fmt.Sprintf("[%s] %s", header, strings.Join(values, " | ")))
		}
	}
	return strings.Join(lines, "\n")
}

// infoCell returns the cleaned cell text, followed by its detail link if any.
func infoCell(cell *html.Node, base *url.URL) string {
	text := cleanInfoText(cellText(cell))
	if text == "" {
		return ""
	}
	if link := detailLink(cell, base); link != "" {
		return fmt.Sprintf("%s (%s)", text, link)
	}
	return text
}

func detailLink(cell *html.Node, base *url.URL) string {
	for _, a := range findAll(cell, atom.A) {
		if !strings.Contains(cellText(a), "자세히") {
			continue
		}
		href := strings.TrimSpace(attr(a, "href"))
		if href == "" {
			continue
		}
		if base == nil {
			return href
		}
		ref, err := base.Parse(href)
		if err != nil {
			return href
		}
		return ref.String()
	}
	return ""
}

// popupLinkText returns the text of the link that opens popup id.
func popupLinkText(doc *html.Node, id string) string {
	for _, a := range findAll(doc, atom.A) {
		if attr(a, "data-needpopup-show") == "#"+id {
			return cleanInfoText(cellText(a))
		}
	}
	return ""
}

var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Br: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Dt: true, atom.Dd: true,
}

// blockLines returns the cleaned text of n split at block elements, without
// question title lines.
func blockLines(n *html.Node) []string {
	var lines []string
	var cur strings.Builder
	flush := func() {
		if s := cleanInfoText(cur.String()); s != "" && !questionNumber.MatchString(s) {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			cur.WriteString(node.Data)
			return
		case html.ElementNode:
			if node.DataAtom == atom.Script || node.DataAtom == atom.Style {
				return
			}
		}
		block := node.Type == html.ElementNode && blockAtoms[node.DataAtom]
		if block {
			flush()
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(n)
	flush()
	return lines
}

func findByClass(n *html.Node, class string) *html.Node {
	for _, el := range findAllElements(n) {
		for _, c := range strings.Fields(attr(el, "class")) {
			if c == class {
				return el
			}
		}
	}
	return nil
}

func findAllElements(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
