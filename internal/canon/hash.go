package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/convoy/internal/model"
)

// Domain prefixes for content keys. The version suffix allows changing the
// encoding without colliding with old keys.
const (
	DomainOrder    = "convoy/order/v1"
	DomainSnapshot = "convoy/snapshot/v1"
	DomainConfig   = "convoy/config/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Key returns the content key of v under domain.
func Key(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canon key %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// OrderKey identifies an accepted order by store and line set. Line order
// does not matter; quantities of repeated products are summed.
func OrderKey(storeID string, lines []model.Line) string {
	qty := make(map[string]int, len(lines))
	for _, l := range lines {
		qty[l.ProductID] += l.Qty
	}
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, strings.Compare)

	set := make([]any, 0, len(ids))
	for _, id := range ids {
		set = append(set, map[string]any{"product": id, "qty": qty[id]})
	}

	// Strings and ints only, so Marshal cannot fail.
	data := MustMarshal(map[string]any{"store": storeID, "lines": set})
	return hashWithDomain(DomainOrder, data)
}
