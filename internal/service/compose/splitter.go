package compose

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/librenews/weblog-bridge/internal/model/post"
)

const (
	// Ellipsis marks text cut short to fit a record.
	Ellipsis = "..."
	// MinLimit is the smallest record size the splitter will work with.
	MinLimit = 16
)

// Split breaks text into fragments of at most limit runes on word boundaries.
// Text that already fits comes back verbatim as a single fragment. When more
// than one fragment results, each ends with an " (i/n)" marker and room for
// that marker is reserved so the marked text still fits. If the limit is too
// small to hold the marker and any text, the fragments are left unmarked.
// No fragment is ever longer than limit.
//
// A word longer than the available room is cut to fit and ends in Ellipsis;
// the rest of that word is lost. Inside a thread the room is limit minus the
// marker, so a word that would fit a bare record can still be cut.
func Split(text string, limit int) []post.Fragment {
	if limit < MinLimit {
		limit = MinLimit
	}
	if runeLen(text) <= limit {
		return []post.Fragment{{Text: text, Index: 1, Total: 1}}
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := pack(words, limit)
	if len(chunks) == 1 {
		return []post.Fragment{{Text: chunks[0], Index: 1, Total: 1}}
	}

	// The marker width depends on the fragment count, which depends on the
	// room left after the marker. Grow the reservation until it is stable.
	reserve := markerWidth(len(chunks))
	for {
		budget := limit - reserve
		if budget <= len(Ellipsis) {
			// No room for a marker plus any text; number by position only.
			return fragmentsOf(pack(words, limit), false)
		}
		chunks = pack(words, budget)
		need := markerWidth(len(chunks))
		if need <= reserve {
			break
		}
		reserve = need
	}
	return fragmentsOf(chunks, true)
}

func fragmentsOf(chunks []string, marked bool) []post.Fragment {
	total := len(chunks)
	fragments := make([]post.Fragment, total)
	for i, chunk := range chunks {
		if marked {
			chunk += marker(i+1, total)
		}
		fragments[i] = post.Fragment{Text: chunk, Index: i + 1, Total: total}
	}
	return fragments
}

// pack greedily joins words with single spaces into chunks of at most budget runes.
func pack(words []string, budget int) []string {
	var (
		chunks  []string
		current strings.Builder
		size    int
	)
	flush := func() {
		if size > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
		}
	}

	for _, word := range words {
		n := runeLen(word)
		switch {
		case n > budget:
			flush()
			chunks = append(chunks, truncate(word, budget))
		case size == 0:
			current.WriteString(word)
			size = n
		case size+1+n <= budget:
			current.WriteByte(' ')
			current.WriteString(word)
			size += 1 + n
		default:
			flush()
			current.WriteString(word)
			size = n
		}
	}
	flush()
	return chunks
}

func marker(index, total int) string {
	return fmt.Sprintf(" (%d/%d)", index, total)
}

// markerWidth is the widest marker a sequence of total fragments carries.
func markerWidth(total int) int {
	return len(marker(total, total))
}

// truncate cuts s to exactly limit runes, the last of which are Ellipsis.
// Strings already within limit are returned unchanged.
func truncate(s string, limit int) string {
	if runeLen(s) <= limit {
		return s
	}
	keep := limit - len(Ellipsis)
	if keep < 0 {
		keep = 0
	}
	return takeRunes(s, keep) + Ellipsis
}

func takeRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
