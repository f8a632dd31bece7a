package sentence_test

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/aria-voice/go-aria/pkg/sentence"
)

// collect pushes tokens through a fresh buffer and returns all emissions.
func collect(tokens []string) []string {
	buf := sentence.NewBuffer()
	var out []string
	for _, tok := range tokens {
		out = append(out, buf.Push(tok)...)
	}
	return append(out, buf.Flush()...)
}

// splitN chops s into chunks of at most n bytes.
func splitN(s string, n int) []string {
	var tokens []string
	for len(s) > n {
		tokens = append(tokens, s[:n])
		s = s[n:]
	}
	if s != "" {
		tokens = append(tokens, s)
	}
	return tokens
}

func TestBufferEmitsSentences(t *testing.T) {
	t.Run("Sentence emitted when terminator and whitespace arrive", func(t *testing.T) {
		buf := sentence.NewBuffer()

		if got := buf.Push("Sure, turning them on"); len(got) != 0 {
			t.Errorf("expected nothing before terminator, got %v", got)
		}
		if got := buf.Push(" now."); len(got) != 0 {
			t.Errorf("expected nothing before trailing whitespace, got %v", got)
		}
		got := buf.Push(" The lights")
		if len(got) != 1 || got[0] != "Sure, turning them on now." {
			t.Errorf("unexpected emission: %v", got)
		}
	})

	t.Run("Flush emits trailing sentence without whitespace", func(t *testing.T) {
		buf := sentence.NewBuffer()
		buf.Push("All done!")
		got := buf.Flush()
		if len(got) != 1 || got[0] != "All done!" {
			t.Errorf("unexpected flush result: %v", got)
		}
	})

	t.Run("Question and exclamation are boundaries", func(t *testing.T) {
		got := collect([]string{"Ready? Yes! Go now."})
		want := []string{"Ready?", "Yes!", "Go now."}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("Buffer is spent after Flush", func(t *testing.T) {
		buf := sentence.NewBuffer()
		buf.Push("One. ")
		buf.Flush()
		if got := buf.Push("Two. "); got != nil {
			t.Errorf("expected no output after Flush, got %v", got)
		}
	})
}

func TestBufferCodeFences(t *testing.T) {
	const text = "Here is the fix. ```go\nfunc secret() {}\n``` That should work. "

	t.Run("Fenced content never emitted", func(t *testing.T) {
		got := collect([]string{text})
		want := []string{"Here is the fix.", "That should work."}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
		for _, s := range got {
			if strings.Contains(s, "secret") {
				t.Errorf("fenced content leaked: %q", s)
			}
		}
	})

	t.Run("Marker split across tokens", func(t *testing.T) {
		got := collect([]string{"Here is the fix. `", "``go\nfunc secret() {}\n`", "`` That should work. "})
		want := []string{"Here is the fix.", "That should work."}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("Open fence at stream end is discarded", func(t *testing.T) {
		got := collect([]string{"Look at this. ```python\nprint('nope')"})
		want := []string{"Look at this."}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("Inline single backticks pass through", func(t *testing.T) {
		got := collect([]string{"Use the `vad` package for detection. "})
		want := []string{"Use the `vad` package for detection."}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestBufferChunkInvariance(t *testing.T) {
	texts := []string{
		"Hello there. How are you today? I am fine!",
		"Here is code. ```go\nfmt.Println(\"hi\")\n``` And prose after. The end.",
		"Leading prose. ```\nblock one\n``` middle. ```\nblock two\n``` tail.",
		"No terminator at all",
		"Backticks `inline` stay. Fences ``` go\nx\n``` vanish. Done.",
	}

	for _, text := range texts {
		whole := collect([]string{text})

		for _, n := range []int{1, 2, 3, 5, 7} {
			got := collect(splitN(text, n))
			if !reflect.DeepEqual(got, whole) {
				t.Errorf("split %d of %q: got %v, want %v", n, text, got, whole)
			}
		}
	}
}

func TestBufferDeterminism(t *testing.T) {
	tokens := []string{"The light ", "is on. ", "```\nstate: on\n```", " Anything else? "}
	first := collect(tokens)
	second := collect(tokens)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("replay differs: %v vs %v", first, second)
	}
}

func TestBufferRun(t *testing.T) {
	in := make(chan string)
	buf := sentence.NewBuffer()
	out := buf.Run(context.Background(), in)

	go func() {
		for _, tok := range []string{"First one. ", "Second one"} {
			in <- tok
		}
		close(in)
	}()

	var got []string
	for s := range out {
		got = append(got, s)
	}
	want := []string{"First one.", "Second one"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
