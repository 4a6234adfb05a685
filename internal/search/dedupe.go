package search

import "github.com/inkleafapp/inkleaf-server/internal/domain"

// Dedupe collapses records that share a content hash (case-insensitive).
// Within a hash group the dbooks record wins over the libgen record when
// both are present. Records without a hash are always kept, never merged,
// and follow the hashed records in their original relative order.
//
// Dedupe is idempotent: applying it to its own output is a no-op.
func Dedupe(records []domain.BookRecord) []domain.BookRecord {
	hashed := make(map[string]domain.BookRecord)
	hashOrder := make([]string, 0, len(records))
	var hashless []domain.BookRecord

	for _, r := range records {
		key := r.HashKey()
		if key == "" {
			hashless = append(hashless, r)
			continue
		}

		existing, ok := hashed[key]
		if !ok {
			hashed[key] = r
			hashOrder = append(hashOrder, key)
			continue
		}
		if existing.SourceID != domain.SourceDbooks && r.SourceID == domain.SourceDbooks {
			hashed[key] = r
		}
	}

	out := make([]domain.BookRecord, 0, len(hashed)+len(hashless))
	for _, key := range hashOrder {
		out = append(out, hashed[key])
	}
	return append(out, hashless...)
}
