package segment

import (
	"strings"

	"docdigest/internal/domain"
)

// Split partitions text into ordered keyword-bounded segments.
//
// The text is lowercased first and the returned segment text stays
// lowercased; original casing is not recoverable from the result. Keywords
// are consumed in list order: each one claims only the first occurrence left
// in the remaining text, emitting a segment that ends with the keyword
// itself. Later occurrences of the same keyword stay embedded in the
// remaining text. Keywords that never occur emit nothing. Whatever remains
// after the last keyword is appended as one final segment, so the result
// always holds (matched keywords + 1) segments.
func Split(text string, keywords []string) []domain.Segment {
	remainder := strings.ToLower(text)

	segments := make([]domain.Segment, 0, len(keywords)+1)

	for _, keyword := range keywords {
		keyword = strings.ToLower(keyword)
		if keyword == "" {
			// An empty needle matches at offset zero and would manufacture
			// an empty segment.
			continue
		}

		idx := strings.Index(remainder, keyword)
		if idx < 0 {
			continue
		}

		boundary := idx + len(keyword)
		segments = append(segments, domain.Segment{
			Index: len(segments),
			Text:  remainder[:boundary],
		})
		remainder = remainder[boundary:]
	}

	return append(segments, domain.Segment{
		Index: len(segments),
		Text:  remainder,
	})
}
