package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators is the descending-priority separator ladder: paragraph
// break, line break, CJK and ASCII sentence punctuation, whitespace, and
// finally the empty separator which permits a hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", "。", "！", "？", ".", "!", "?", " ", ""}

// Split cuts text into chunks of at most maxSize runes, preferring to break
// on the highest-priority separator that produces small enough pieces.
// Consecutive chunks share up to overlap runes carried from the tail of the
// previous chunk. The result is deterministic for identical input; an input
// that is empty after trimming yields no chunks.
func Split(text string, maxSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 2
	}

	pieces := splitRecursive(text, DefaultSeparators, maxSize)
	return merge(pieces, maxSize, overlap)
}

// splitRecursive breaks text into ordered pieces no longer than maxSize
// runes, falling through the separator ladder whenever a piece is still too
// large for the current separator.
func splitRecursive(text string, seps []string, maxSize int) []string {
	if utf8.RuneCountInString(text) <= maxSize {
		return []string{text}
	}
	if len(seps) == 0 {
		return []string{text}
	}

	sep := seps[0]
	rest := seps[1:]

	if sep == "" {
		// last resort: individual runes, merged back below
		runes := []rune(text)
		out := make([]string, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}
		return out
	}

	var out []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) > maxSize {
			out = append(out, splitRecursive(part, rest, maxSize)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// merge greedily packs pieces into chunks of at most maxSize runes. Each new
// chunk is seeded with the overlap tail of the previous one; the seed counts
// against the size budget and is dropped when the next piece alone would
// blow it.
func merge(pieces []string, maxSize, overlap int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() string {
		chunk := cur.String()
		cur.Reset()
		curLen = 0
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		return chunk
	}

	for _, p := range pieces {
		plen := utf8.RuneCountInString(p)
		if curLen > 0 && curLen+plen > maxSize {
			prev := flush()
			if overlap > 0 {
				tail := tailRunes(prev, overlap)
				if tlen := utf8.RuneCountInString(tail); tlen+plen <= maxSize {
					cur.WriteString(tail)
					curLen = tlen
				}
			}
		}
		cur.WriteString(p)
		curLen += plen
	}
	if curLen > 0 {
		flush()
	}
	return chunks
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
