package statuses_word_list

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWordListFilters(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		texts  []string
		want   []Word
	}{
		{
			name:   "links and punctuation are dropped",
			filter: Filter{},
			texts:  []string{"Go, go! https://go.dev/doc rocks"},
			want:   []Word{{"go", 2}, {"rocks", 1}},
		},
		{
			name:   "hashtags and mentions kept when allowed",
			filter: Filter{MinLength: 3},
			texts:  []string{"#golang @gopher #golang ok"},
			want:   []Word{{"#golang", 2}, {"@gopher", 1}},
		},
		{
			name:   "hashtags and mentions excluded",
			filter: Filter{ExcludeHashtags: true, ExcludeMentions: true},
			texts:  []string{"#golang @gopher plain"},
			want:   []Word{{"plain", 1}},
		},
		{
			name:   "stopwords and explicit words",
			filter: Filter{ExcludeStopwords: true, ExcludeWords: []string{"Coffee"}},
			texts:  []string{"the coffee and the tea"},
			want:   []Word{{"tea", 1}},
		},
		{
			name:   "minimum count and cap",
			filter: Filter{MinCount: 2, Cap: 2},
			texts:  []string{"b a c", "a b c", "a d"},
			want:   []Word{{"a", 3}, {"b", 2}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list := NewWordList(tc.filter)
			for _, text := range tc.texts {
				list.Add(text)
			}
			if diff := cmp.Diff(tc.want, list.Words()); diff != "" {
				t.Fatalf("words mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStopwordsLoaded(t *testing.T) {
	words := stopwords()
	if len(words) < 100 {
		t.Fatalf("expected embedded stopwords, got %d", len(words))
	}
	for _, w := range words {
		if w == "the" {
			return
		}
	}
	t.Fatalf("stopwords missing %q", "the")
}
