package planner

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips Vietnamese diacritics so "Cà Phê Đá" matches "ca phe da".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		switch r {
		case 'đ', 'Đ':
			return 'd'
		}
		return unicode.ToLower(r)
	}, out)
	return out
}

// tokens splits folded text into words, dropping punctuation.
func tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsPhrase reports whether the folded word sequence of text contains phrase
// as whole words.
func containsPhrase(text, phrase string) bool {
	hay := " " + strings.Join(tokens(text), " ") + " "
	needle := " " + strings.Join(tokens(phrase), " ") + " "
	return needle != "  " && strings.Contains(hay, needle)
}

// Keyword tables are matched on folded text, so entries carry no diacritics.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{CategoryCafe, []string{"cafe", "coffee", "ca phe", "tra sua", "milk tea", "bakery", "banh ngot", "tea"}},
	{CategoryMuseum, []string{"museum", "bao tang", "gallery", "trien lam", "exhibition", "dinh doc lap", "palace"}},
	{CategoryShopping, []string{"mall", "shopping", "trung tam thuong mai", "vincom", "aeon", "takashimaya", "market", "sieu thi", "plaza", "cho ben thanh"}},
	{CategoryNightlife, []string{"bar", "pub", "rooftop", "beer", "bia", "club", "lounge"}},
	{CategoryEntertainment, []string{"cinema", "rap phim", "cgv", "karaoke", "bowling", "game", "arcade", "theater", "nha hat", "spa"}},
	{CategoryPark, []string{"park", "cong vien", "garden", "vuon", "zoo", "thao cam vien", "river", "bo song", "walking street", "pho di bo", "beach", "bai bien"}},
	{CategoryFood, []string{"restaurant", "nha hang", "quan an", "quan nhau", "com tam", "com", "pho", "bun", "banh mi", "hu tieu", "lau", "oc", "bbq", "nuong", "food", "an sang", "an trua", "an toi", "dinner", "lunch", "breakfast"}},
}

var indoorKeywords = []string{
	"mall", "trung tam thuong mai", "vincom", "aeon", "takashimaya", "plaza",
	"cafe", "coffee", "ca phe", "tra sua", "milk tea", "bakery",
	"museum", "bao tang", "gallery", "trien lam",
	"cinema", "rap phim", "cgv", "theater", "nha hat",
	"restaurant", "nha hang", "quan an", "quan nhau", "com", "pho", "bun", "lau",
	"bar", "pub", "club", "lounge", "karaoke", "bowling", "arcade", "spa",
	"sieu thi", "library", "thu vien", "indoor",
}

// classifyCategory infers a category from free text. Unknown text is "general".
func classifyCategory(text string) string {
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if containsPhrase(text, w) {
				return c.category
			}
		}
	}
	return CategoryGeneral
}

// classifyIndoor is a best-effort guess; no keyword match means outdoor.
func classifyIndoor(text string) bool {
	if classifyCategory(text) == CategoryPark {
		return false
	}
	for _, w := range indoorKeywords {
		if containsPhrase(text, w) {
			return true
		}
	}
	return false
}
