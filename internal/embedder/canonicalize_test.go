package embedder

import "testing"

func TestCanonicalizeLowSignalRejected(t *testing.T) {
	cases := []string{"ok", "OK", "thanks", "Thanks.", "+1", "no", ""}
	for _, c := range cases {
		if _, ok := CanonicalizeForEmbedding(c, MaxCharsFor(true)); ok {
			t.Errorf("expected %q to be rejected as low-signal", c)
		}
	}
}

func TestCanonicalizeAcceptsRealText(t *testing.T) {
	canon, ok := CanonicalizeForEmbedding("Hello Rust, this is a real tweet.", MaxCharsFor(true))
	if !ok {
		t.Fatal("expected real text to be accepted")
	}
	if canon == "" {
		t.Fatal("expected non-empty canonical text")
	}
}

func TestCanonicalizeTruncates(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	canon, ok := CanonicalizeForEmbedding(string(long), MaxCharsFor(true))
	if !ok {
		t.Fatal("expected acceptance")
	}
	if len([]rune(canon)) != maxEmbedCharsShort {
		t.Fatalf("expected truncation to %d chars, got %d", maxEmbedCharsShort, len([]rune(canon)))
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	text := "**bold** and _stuff_ with   extra   spaces\n\n\nand newlines"
	first, ok1 := CanonicalizeForEmbedding(text, MaxCharsFor(false))
	if !ok1 {
		t.Fatal("expected first canonicalisation to accept")
	}
	second, ok2 := CanonicalizeForEmbedding(first, MaxCharsFor(false))
	if !ok2 {
		t.Fatal("expected second canonicalisation to accept")
	}
	if first != second {
		t.Fatalf("canonicalisation not idempotent: %q != %q", first, second)
	}
}

func TestCanonicalizeStripsMarkdown(t *testing.T) {
	canon, ok := CanonicalizeForEmbedding("**bold text** and [a link](http://example.com)", MaxCharsFor(false))
	if !ok {
		t.Fatal("expected acceptance")
	}
	if canon != "bold text and a link" {
		t.Fatalf("unexpected canonical text: %q", canon)
	}
}

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash("hello world")
	b := ContentHash("hello world")
	if a != b {
		t.Fatal("expected identical content hash for identical text")
	}
	c := ContentHash("hello worlds")
	if a == c {
		t.Fatal("expected different content hash for different text")
	}
}
