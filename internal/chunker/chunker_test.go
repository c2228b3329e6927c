package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t"} {
		if got := Split(in, 100, 10); len(got) != 0 {
			t.Fatalf("expected no chunks for %q, got %d", in, len(got))
		}
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks := Split("hello world", 100, 10)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Fatalf("unexpected chunk: %q", chunks[0])
	}
}

func TestSplit_RespectsMaxSize(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	maxSize := 100
	chunks := Split(text, maxSize, 20)
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > maxSize {
			t.Fatalf("chunk %d exceeds maxSize: %d > %d", i, n, maxSize)
		}
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	text := "first paragraph here.\n\nsecond paragraph here.\n\nthird paragraph here."
	chunks := Split(text, 30, 0)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "first paragraph here." {
		t.Fatalf("unexpected first chunk: %q", chunks[0])
	}
}

func TestSplit_HardCutWithOverlap(t *testing.T) {
	// no separators at all: forces the character-cut fallback
	text := strings.Repeat("abcdefghij", 5)
	maxSize, overlap := 10, 3
	chunks := Split(text, maxSize, overlap)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-overlap:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Fatalf("chunk %d does not start with overlap %q: %q", i, tail, chunks[i])
		}
	}
	// every source rune must appear in order across chunks
	var joined strings.Builder
	joined.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		joined.WriteString(chunks[i][overlap:])
	}
	if joined.String() != text {
		t.Fatalf("chunks do not reconstruct input:\n%q\n%q", joined.String(), text)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Some sentence. Another one! A third? ", 20)
	a := Split(text, 80, 16)
	b := Split(text, 80, 16)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_SmallerMaxSizeNeverFewerChunks(t *testing.T) {
	text := strings.Repeat("Rain falls on the roof at night. The river keeps moving! ", 30)
	prev := len(Split(text, 400, 0))
	for _, maxSize := range []int{200, 100, 50} {
		n := len(Split(text, maxSize, 0))
		if n < prev {
			t.Fatalf("maxSize=%d produced %d chunks, fewer than %d", maxSize, n, prev)
		}
		prev = n
	}
}

func TestSplit_CJKPunctuation(t *testing.T) {
	text := strings.Repeat("这是一个句子。这是另一个句子！还有一个问题吗？", 10)
	chunks := Split(text, 20, 0)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 20 {
			t.Fatalf("chunk %d exceeds maxSize: %d runes", i, n)
		}
	}
}

func TestSplit_ResplitIdempotentForSmallChunks(t *testing.T) {
	text := strings.Repeat("A short line.\n", 40)
	for _, c := range Split(text, 60, 0) {
		again := Split(c, 60, 0)
		if len(again) != 1 || again[0] != c {
			t.Fatalf("re-splitting an already small chunk changed it: %q -> %v", c, again)
		}
	}
}
