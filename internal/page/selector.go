// internal/page/selector.go
package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxSelectorDepth bounds the ancestor walk when no usable id exists. The
// synthesized selector only needs to re-locate the element at scan time, not
// be globally minimal.
const maxSelectorDepth = 5

// SelectorFor synthesizes a structural CSS selector for the first node of the
// selection. An id without whitespace wins outright; otherwise segments of
// the form tag.class1.class2:nth-child(n) are built for up to five ancestors.
func SelectorFor(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	node := sel.Nodes[0]

	if id := attrValue(node, "id"); id != "" && !strings.ContainsAny(id, " \t\n") {
		return "#" + id
	}

	var segments []string
	for cur := node; cur != nil && cur.Type == html.ElementNode && len(segments) < maxSelectorDepth; cur = cur.Parent {
		tag := strings.ToLower(cur.Data)
		if tag == "html" || tag == "body" {
			break
		}
		// An ancestor with a clean id anchors the rest of the path.
		if cur != node {
			if id := attrValue(cur, "id"); id != "" && !strings.ContainsAny(id, " \t\n") {
				return "#" + id + " > " + strings.Join(segments, " > ")
			}
		}
		segments = append([]string{segmentFor(cur)}, segments...)
	}
	return strings.Join(segments, " > ")
}

// segmentFor renders one path segment: tag, up to two classes, and the
// 1-based position among element siblings.
func segmentFor(node *html.Node) string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(node.Data))

	classes := strings.Fields(attrValue(node, "class"))
	for i, class := range classes {
		if i == 2 {
			break
		}
		sb.WriteString("." + class)
	}

	sb.WriteString(fmt.Sprintf(":nth-child(%d)", elementIndex(node)))
	return sb.String()
}

// elementIndex returns the node's 1-based position among its element siblings.
func elementIndex(node *html.Node) int {
	index := 1
	for sibling := node.PrevSibling; sibling != nil; sibling = sibling.PrevSibling {
		if sibling.Type == html.ElementNode {
			index++
		}
	}
	return index
}

func attrValue(node *html.Node, name string) string {
	for _, attr := range node.Attr {
		if attr.Key == name {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}
