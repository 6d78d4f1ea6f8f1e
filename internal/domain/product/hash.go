package product

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/example/marketplace-catalog/internal/domain/item"
)

// HashFacets digests a canonical facet map. The digest is deterministic and
// independent of entry order: entries are rendered as "key=value", sorted,
// then hashed. Two products with equal facet content always collide, which
// is exactly what duplicate-configuration detection needs.
func HashFacets(entries map[string]string) string {
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for k, v := range entries {
		lines = append(lines, k+"="+v)
	}
	sort.Strings(lines)

	sum := blake2b.Sum256([]byte(strings.Join(lines, ";")))
	return hex.EncodeToString(sum[:])
}

// CanonicalFacets renders stored facet properties into the canonical form
// HashFacets consumes: raw strings stay as is, reference values become a
// sorted comma-joined id list.
func CanonicalFacets(facets map[string]item.Value) map[string]string {
	entries := make(map[string]string, len(facets))
	for name, v := range facets {
		entries[name] = canonicalValue(v)
	}
	return entries
}

func canonicalValue(v item.Value) string {
	switch v.Kind {
	case item.KindString:
		return strings.TrimSpace(v.Str)
	case item.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case item.KindRef:
		return strconv.FormatInt(v.Ref.ID, 10)
	case item.KindRefList:
		ids := v.RefIDs()
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		parts := make([]string, 0, len(ids))
		for _, id := range ids {
			parts = append(parts, strconv.FormatInt(id, 10))
		}
		return strings.Join(parts, ",")
	}
	return ""
}
