package crawler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	// ErrNoTable is returned when a page holds no table to parse.
	ErrNoTable = errors.New("no table found")
	// ErrNodeNotFound is returned when a keyed DOM node is missing.
	ErrNodeNotFound = errors.New("node not found")
)

// ItemRow is one parsed row of an inspection item table.
type ItemRow struct {
	FoodType string
	Items    string
}

// CycleRow is one food type of a parsed inspection cycle row.
type CycleRow struct {
	FoodGroup string
	FoodType  string
	Cycle     string
}

// ParseItems extracts item rows. With nodeID set only tables inside that node
// are read; otherwise every table on the page is.
func ParseItems(r io.Reader, nodeID string) ([]ItemRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	root := doc
	if nodeID != "" {
		if root = findByID(doc, nodeID); root == nil {
			return nil, fmt.Errorf("%w: #%s", ErrNodeNotFound, nodeID)
		}
	}

	tables := findAll(root, atom.Table)
	if len(tables) == 0 {
		return nil, ErrNoTable
	}

	var out []ItemRow
	for _, table := range tables {
		for _, cells := range bodyRows(table, 3) {
			foodType, items := cellText(cells[1]), cellText(cells[2])
			if foodType == "" || items == "" {
				continue
			}
			out = append(out, ItemRow{FoodType: foodType, Items: items})
		}
	}
	return out, nil
}

// ParseCycles extracts cycle rows from the first table inside nodeID. A food
// type cell listing several comma-separated types yields one row per type.
func ParseCycles(r io.Reader, nodeID string) ([]CycleRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return parseCycleNode(doc, nodeID)
}

func parseCycleNode(doc *html.Node, nodeID string) ([]CycleRow, error) {
	node := findByID(doc, nodeID)
	if node == nil {
		return nil, fmt.Errorf("%w: #%s", ErrNodeNotFound, nodeID)
	}
	tables := findAll(node, atom.Table)
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w in #%s", ErrNoTable, nodeID)
	}

	var out []CycleRow
	for _, cells := range bodyRows(tables[0], 4) {
		foodGroup, cycle := cellText(cells[1]), cellText(cells[3])
		for _, foodType := range SplitFoodTypes(cellText(cells[2])) {
			if cycle == "" {
				continue
			}
			out = append(out, CycleRow{FoodGroup: foodGroup, FoodType: foodType, Cycle: cycle})
		}
	}
	return out, nil
}

// SplitFoodTypes splits a comma-separated food type cell, dropping blanks.
func SplitFoodTypes(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// bodyRows returns the direct td cells of every row after the header, keeping
// rows with at least minCells cells.
func bodyRows(table *html.Node, minCells int) [][]*html.Node {
	rows := findAll(table, atom.Tr)
	if len(rows) < 2 {
		return nil
	}
	var out [][]*html.Node
	for _, tr := range rows[1:] {
		var cells []*html.Node
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Td {
				cells = append(cells, c)
			}
		}
		if len(cells) >= minCells {
			out = append(out, cells)
		}
	}
	return out
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns descendants of n with tag a in document order.
func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// cellText joins the trimmed text fragments of n with single spaces.
func cellText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if s := strings.Join(strings.Fields(node.Data), " "); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
