package cartcache

import (
	"fmt"
	"sort"
	"strings"

	"trolley/internal/cart"
)

// Hash digests cart contents into the key cached results are validated
// against. Lines are mapped to "<productID>-<quantity>" and sorted before
// joining, so the order lines are stored in never changes the hash while
// any change of product identity or quantity does.
func Hash(items []cart.Item) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s-%d", item.ProductID, item.Quantity))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}
