package tokenize

import (
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

func InitTokenizer() (*tokenizer.Tokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ContainsCJK reports whether text carries Han, Hiragana, Katakana or Hangul
// runes. Such text cannot be split on whitespace and needs morphological
// segmentation.
func ContainsCJK(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han, unicode.Hangul) {
			return true
		}
	}
	return false
}

// Segment splits text into terms. CJK text goes through kagome wakati
// segmentation; everything else splits on whitespace and punctuation.
func Segment(t *tokenizer.Tokenizer, text string) []string {
	if t != nil && ContainsCJK(text) {
		return t.Wakati(text)
	}

	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Terms returns lowercased content-bearing terms for frequency scoring.
// Single-rune ASCII tokens and pure punctuation are dropped.
func Terms(t *tokenizer.Tokenizer, text string) []string {
	segments := Segment(t, text)

	terms := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.ToLower(strings.TrimSpace(seg))
		if seg == "" {
			continue
		}
		if len(seg) == 1 && seg[0] < unicode.MaxASCII && !unicode.IsNumber(rune(seg[0])) {
			continue
		}
		if !hasLetterOrNumber(seg) {
			continue
		}
		terms = append(terms, seg)
	}
	return terms
}

func hasLetterOrNumber(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
