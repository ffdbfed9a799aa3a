package services

import (
	"fmt"
	"strings"

	"github.com/Soulfra/soulfra-sub002/internal/models"
)

// RenderTree draws the lineage forest as ASCII art. It is a presentation
// layer over the typed tree; swapping it out never touches BuildTree.
// Output is deterministic for a fixed tree.
func RenderTree(tree *models.ScanTree) string {
	var b strings.Builder
	fmt.Fprintf(&b, "code %s\n", tree.CodeID)

	for i, root := range tree.Roots {
		renderNode(&b, root, "", i == len(tree.Roots)-1)
	}
	return b.String()
}

func renderNode(b *strings.Builder, node *models.ScanNode, prefix string, last bool) {
	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	fmt.Fprintf(b, "%s%s%s [%s] %s %s\n",
		prefix,
		connector,
		shortID(node.Scan.ID.String()),
		deviceTypeKey(node.Scan),
		locationKey(node.Scan),
		node.Scan.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	)

	for i, child := range node.Children {
		renderNode(b, child, childPrefix, i == len(node.Children)-1)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
