package statuses_word_list

import (
	"bufio"
	_ "embed"
	"regexp"
	"sort"
	"strings"
)

//go:embed stopwords.txt
var stopwordsFile string

var (
	linkPattern    = regexp.MustCompile(`https?://\S+`)
	nonWordPattern = regexp.MustCompile(`[^0-9a-z@#_ ]`)
)

// Word is a word together with the number of times it occurred.
type Word struct {
	Text  string
	Count int
}

// Filter controls which words a WordList keeps.
type Filter struct {
	MinCount         int
	MinLength        int
	Cap              int
	ExcludeWords     []string
	ExcludeStopwords bool
	ExcludeHashtags  bool
	ExcludeMentions  bool
}

// WordList counts words across a corpus of texts.
type WordList struct {
	filter  Filter
	exclude map[string]bool
	counts  map[string]int
}

// NewWordList returns an empty list applying filter.
func NewWordList(filter Filter) *WordList {
	exclude := make(map[string]bool, len(filter.ExcludeWords))
	for _, w := range filter.ExcludeWords {
		exclude[strings.ToLower(strings.TrimSpace(w))] = true
	}
	if filter.ExcludeStopwords {
		for _, w := range stopwords() {
			exclude[w] = true
		}
	}
	return &WordList{filter: filter, exclude: exclude, counts: map[string]int{}}
}

// Add splits text into words and counts the ones that pass the filter.
// Links are dropped and anything but letters, digits, _, @ and # separates
// words.
func (l *WordList) Add(text string) {
	text = strings.ToLower(strings.TrimSpace(text))
	text = linkPattern.ReplaceAllString(text, "")
	text = nonWordPattern.ReplaceAllString(text, " ")
	for _, word := range strings.Fields(text) {
		if l.excluded(word) {
			continue
		}
		l.counts[word]++
	}
}

// Words returns the counted words, most frequent first. Ties are ordered
// alphabetically.
func (l *WordList) Words() []Word {
	words := make([]Word, 0, len(l.counts))
	for text, count := range l.counts {
		if count < l.filter.MinCount {
			continue
		}
		words = append(words, Word{Text: text, Count: count})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Text < words[j].Text
	})
	if l.filter.Cap > 0 && len(words) > l.filter.Cap {
		words = words[:l.filter.Cap]
	}
	return words
}

func (l *WordList) excluded(word string) bool {
	switch {
	case len(word) < l.filter.MinLength:
		return true
	case l.filter.ExcludeHashtags && strings.HasPrefix(word, "#"):
		return true
	case l.filter.ExcludeMentions && strings.HasPrefix(word, "@"):
		return true
	}
	return l.exclude[word]
}

func stopwords() []string {
	var words []string
	scanner := bufio.NewScanner(strings.NewReader(stopwordsFile))
	for scanner.Scan() {
		if w := strings.ToLower(strings.TrimSpace(scanner.Text())); w != "" {
			words = append(words, w)
		}
	}
	return words
}
