package compose

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"
)

var markerPattern = regexp.MustCompile(` \((\d+)/(\d+)\)$`)

func TestSplitFitsReturnsInputVerbatim(t *testing.T) {
	inputs := []string{
		"short post",
		"Title\n\nBody with  double  spaces",
		strings.Repeat("a", 280),
		"",
	}
	for _, in := range inputs {
		got := Split(in, 280)
		if len(got) != 1 {
			t.Fatalf("Split(%q) returned %d fragments", in, len(got))
		}
		if got[0].Text != in {
			t.Fatalf("Split(%q) = %q, want input unchanged", in, got[0].Text)
		}
		if got[0].Index != 1 || got[0].Total != 1 {
			t.Fatalf("unexpected position %d/%d", got[0].Index, got[0].Total)
		}
	}
}

func TestSplitRespectsLimitAndKeepsWords(t *testing.T) {
	var words []string
	for i := 0; i < 400; i++ {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	text := strings.Join(words, " ")

	for _, limit := range []int{40, 100, 280, 300} {
		fragments := Split(text, limit)
		if len(fragments) < 2 {
			t.Fatalf("limit %d: expected several fragments, got %d", limit, len(fragments))
		}

		var rebuilt []string
		for i, f := range fragments {
			if n := utf8.RuneCountInString(f.Text); n > limit {
				t.Fatalf("limit %d: fragment %d has %d runes", limit, i+1, n)
			}
			m := markerPattern.FindStringSubmatch(f.Text)
			if m == nil {
				t.Fatalf("limit %d: fragment %d lacks marker: %q", limit, i+1, f.Text)
			}
			if m[1] != fmt.Sprint(i+1) || m[2] != fmt.Sprint(len(fragments)) {
				t.Fatalf("limit %d: fragment %d has marker %q", limit, i+1, m[0])
			}
			if f.Index != i+1 || f.Total != len(fragments) {
				t.Fatalf("limit %d: fragment %d position %d/%d", limit, i+1, f.Index, f.Total)
			}
			body := strings.TrimSuffix(f.Text, m[0])
			rebuilt = append(rebuilt, strings.Fields(body)...)
		}

		if strings.Join(rebuilt, " ") != text {
			t.Fatalf("limit %d: words were not preserved in order", limit)
		}
	}
}

func TestSplitOversizedWordAlone(t *testing.T) {
	word := strings.Repeat("x", 500)
	fragments := Split(word, 280)
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
	got := fragments[0].Text
	if utf8.RuneCountInString(got) != 280 {
		t.Fatalf("fragment has %d runes, want 280", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, Ellipsis) {
		t.Fatalf("fragment should end with ellipsis: %q", got[len(got)-10:])
	}
}

func TestSplitOversizedWordAmongOthers(t *testing.T) {
	text := "intro " + strings.Repeat("y", 400) + " outro"
	fragments := Split(text, 100)
	if len(fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d: %+v", len(fragments), fragments)
	}
	if fragments[0].Text != "intro (1/3)" {
		t.Fatalf("first fragment = %q", fragments[0].Text)
	}
	middle := fragments[1].Text
	if utf8.RuneCountInString(middle) > 100 {
		t.Fatalf("middle fragment too long: %d", utf8.RuneCountInString(middle))
	}
	if !strings.HasSuffix(middle, Ellipsis+" (2/3)") {
		t.Fatalf("middle fragment should be cut: %q", middle)
	}
	if fragments[2].Text != "outro (3/3)" {
		t.Fatalf("last fragment = %q", fragments[2].Text)
	}
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("héllo ", 30)
	fragments := Split(strings.TrimSpace(text), 100)
	if len(fragments) < 2 {
		t.Fatalf("expected a split, got %d fragments", len(fragments))
	}
	for _, f := range fragments {
		if n := utf8.RuneCountInString(f.Text); n > 100 {
			t.Fatalf("fragment has %d runes", n)
		}
		if !utf8.ValidString(f.Text) {
			t.Fatalf("fragment is not valid UTF-8: %q", f.Text)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 40)
	first := Split(text, 120)
	second := Split(text, 120)
	if len(first) != len(second) {
		t.Fatalf("fragment counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("fragment %d differs: %q vs %q", i, first[i].Text, second[i].Text)
		}
	}
}

func TestSplitTitledLongPost(t *testing.T) {
	body := strings.TrimSpace(strings.Repeat("lorem ", 300))
	fragments := Split("Hello\n\n"+body, 280)
	if len(fragments) < 7 {
		t.Fatalf("expected at least 7 fragments, got %d", len(fragments))
	}
	if !strings.HasPrefix(fragments[0].Text, "Hello lorem") {
		t.Fatalf("title should lead the first fragment: %q", fragments[0].Text[:20])
	}
}

func TestSplitReservesWiderMarkers(t *testing.T) {
	// Enough fragments that the marker grows to two digits.
	text := strings.TrimSpace(strings.Repeat("abcd ", 200))
	fragments := Split(text, 20)
	if len(fragments) < 10 {
		t.Fatalf("expected double-digit fragment count, got %d", len(fragments))
	}
	for _, f := range fragments {
		if n := utf8.RuneCountInString(f.Text); n > 20 {
			t.Fatalf("fragment %q has %d runes", f.Text, n)
		}
	}
}

func TestSplitNeverExceedsSmallLimit(t *testing.T) {
	// 12000 fragments need a 14-rune marker, which leaves no room at limit 16.
	text := strings.Repeat("abcdefgh ", 12000)
	fragments := Split(text, MinLimit)
	if len(fragments) != 12000 {
		t.Fatalf("expected 12000 fragments, got %d", len(fragments))
	}
	for i, f := range fragments {
		if n := utf8.RuneCountInString(f.Text); n > MinLimit {
			t.Fatalf("fragment %d has %d runes: %q", i+1, n, f.Text)
		}
		if f.Text != "abcdefgh" {
			t.Fatalf("fragment %d = %q, want the bare word", i+1, f.Text)
		}
		if f.Index != i+1 || f.Total != 12000 {
			t.Fatalf("fragment %d position %d/%d", i+1, f.Index, f.Total)
		}
	}
}

func TestSplitSmallLimitKeepsMarkersWhenTheyFit(t *testing.T) {
	fragments := Split("abcdefgh abcdefgh abcdefgh", MinLimit)
	want := []string{"abcdefgh (1/3)", "abcdefgh (2/3)", "abcdefgh (3/3)"}
	if len(fragments) != len(want) {
		t.Fatalf("expected %d fragments, got %+v", len(want), fragments)
	}
	for i, f := range fragments {
		if f.Text != want[i] {
			t.Fatalf("fragment %d = %q, want %q", i+1, f.Text, want[i])
		}
	}
}

func TestSplitCutsWordThatOnlyFitsWithoutMarker(t *testing.T) {
	// 275 runes fit a bare 280-rune record but not beside a " (2/3)" marker.
	word := strings.Repeat("w", 275)
	fragments := Split("first "+word+" last", 280)
	if len(fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(fragments))
	}
	middle := fragments[1].Text
	if n := utf8.RuneCountInString(middle); n != 280 {
		t.Fatalf("middle fragment has %d runes, want 280", n)
	}
	want := strings.Repeat("w", 271) + Ellipsis + " (2/3)"
	if middle != want {
		t.Fatalf("middle fragment = %q", middle)
	}
	if fragments[0].Text != "first (1/3)" || fragments[2].Text != "last (3/3)" {
		t.Fatalf("unexpected neighbours %q, %q", fragments[0].Text, fragments[2].Text)
	}
}
