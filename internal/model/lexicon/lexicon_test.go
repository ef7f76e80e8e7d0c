package lexicon

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		name string
		hint string
		tags []string
		want string
	}{
		{"hint wins over tags", "whitewind", []string{"blog"}, WhitewindEntry},
		{"hint is case-insensitive", "WhiteWind", nil, WhitewindEntry},
		{"tags when no hint", "", []string{"blog"}, FeedPost},
		{"first matching tag", "", []string{"tech", "WHITEWIND", "blog"}, WhitewindEntry},
		{"default when nothing matches", "", nil, Default},
		{"unknown tags fall back", "", []string{"tech", "go"}, Default},
		{"fully qualified hint verbatim", "com.example.blog.post", []string{"whitewind"}, "com.example.blog.post"},
		{"unknown short hint falls to tags", "mystery", []string{"whitewind"}, WhitewindEntry},
		{"hint with spaces", "  sapphire ", nil, FeedPost},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.hint, tc.tags); got != tc.want {
				t.Fatalf("Resolve(%q, %v) = %q, want %q", tc.hint, tc.tags, got, tc.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(WhitewindEntry) != KindLongForm {
		t.Fatal("whitewind entries are long-form")
	}
	if KindOf(FeedPost) != KindShortPost {
		t.Fatal("feed posts are short posts")
	}
	if KindOf("com.example.custom") != KindShortPost {
		t.Fatal("unknown collections default to short posts")
	}
}

func TestDescribe(t *testing.T) {
	info := Describe(Limits{MaxSinglePost: 280, MaxRecord: 300, ThreadSupport: true})
	if info.Default != FeedPost {
		t.Fatalf("unexpected default %q", info.Default)
	}
	want := []string{"blog", "default", "longform", "sapphire", "whitewind"}
	if len(info.Supported) != len(want) {
		t.Fatalf("supported = %v, want %v", info.Supported, want)
	}
	for i := range want {
		if info.Supported[i] != want[i] {
			t.Fatalf("supported = %v, want %v", info.Supported, want)
		}
	}
	if info.Limits.MaxSinglePost != 280 {
		t.Fatalf("limits not carried: %+v", info.Limits)
	}
}
