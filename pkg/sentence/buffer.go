// Package sentence turns a stream of LLM tokens into complete, speakable
// sentences.
//
// Model output in this system interleaves prose with code fences and tool
// output; only the prose may reach the synthesizer. The buffer tracks triple
// backtick fences across arbitrary token boundaries, discards fenced content,
// and emits a sentence as soon as its terminator and trailing whitespace have
// arrived. A Buffer serves one response turn and is not restartable;
// construct a fresh one per turn.
//
// Example usage:
//
//	buf := sentence.NewBuffer()
//	for token := range tokens {
//	    for _, s := range buf.Push(token) {
//	        speak(s)
//	    }
//	}
//	for _, s := range buf.Flush() {
//	    speak(s)
//	}
package sentence

import (
	"context"
	"regexp"
	"strings"
)

const fence = "```"

// boundary matches a sentence terminator followed by whitespace.
var boundary = regexp.MustCompile(`[.?!][ \t\r\n]`)

// Buffer accumulates streamed tokens and yields speakable sentences.
// It is used from a single goroutine.
type Buffer struct {
	// text holds prose outside code fences, pending a sentence boundary.
	text strings.Builder

	// carry holds a trailing partial backtick run so a fence marker split
	// across tokens is still detected.
	carry string

	inCode  bool
	flushed bool
}

// NewBuffer creates an empty buffer for one response turn.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// InCodeBlock reports whether the buffer is currently inside a fence.
func (b *Buffer) InCodeBlock() bool {
	return b.inCode
}

// Push appends one token and returns any sentences completed by it.
// Identical source text split into one token or N arbitrary tokens yields
// identical emitted sentences.
func (b *Buffer) Push(token string) []string {
	if b.flushed || token == "" {
		return nil
	}

	b.consume(b.carry + token)
	return b.drain(false)
}

// Flush ends the stream, returning any remaining speakable content as a
// final sentence. Content inside an unterminated fence is discarded.
// The buffer is spent afterwards.
func (b *Buffer) Flush() []string {
	if b.flushed {
		return nil
	}
	b.flushed = true

	// A dangling partial backtick run is literal text, not a fence.
	if b.carry != "" && !b.inCode {
		b.text.WriteString(b.carry)
	}
	b.carry = ""

	return b.drain(true)
}

// consume routes raw text into the prose buffer, toggling fence state on
// every triple-backtick marker and discarding fenced content.
func (b *Buffer) consume(work string) {
	b.carry = ""

	for {
		idx := strings.Index(work, fence)
		if idx < 0 {
			break
		}
		if !b.inCode {
			b.text.WriteString(work[:idx])
		}
		b.inCode = !b.inCode
		work = work[idx+len(fence):]
	}

	// Retain a trailing run of one or two backticks; the rest of the
	// marker may arrive with the next token.
	if n := trailingBackticks(work); n > 0 {
		b.carry = work[len(work)-n:]
		work = work[:len(work)-n]
	}

	if !b.inCode {
		b.text.WriteString(work)
	}
}

// drain scans the prose buffer for completed sentences. When final is true
// the remaining tail is emitted as the last sentence.
func (b *Buffer) drain(final bool) []string {
	var out []string
	text := b.text.String()

	for {
		loc := boundary.FindStringIndex(text)
		if loc == nil {
			break
		}
		segment := strings.TrimSpace(text[:loc[0]+1])
		text = text[loc[1]:]
		if segment != "" && Speakable(segment) {
			out = append(out, segment)
		}
	}

	if final {
		tail := strings.TrimSpace(text)
		text = ""
		if tail != "" && Speakable(tail) {
			out = append(out, tail)
		}
	}

	b.text.Reset()
	b.text.WriteString(text)
	return out
}

func trailingBackticks(s string) int {
	n := 0
	for n < len(s) && s[len(s)-1-n] == '`' {
		n++
	}
	if n > 2 {
		n = 2
	}
	return n
}

// Run consumes tokens from in and produces sentences on the returned channel
// until in closes or ctx is cancelled. The output channel is closed when the
// stream ends. The buffer is spent afterwards.
func (b *Buffer) Run(ctx context.Context, in <-chan string) <-chan string {
	out := make(chan string, 8)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case token, ok := <-in:
				if !ok {
					for _, s := range b.Flush() {
						select {
						case out <- s:
						case <-ctx.Done():
							return
						}
					}
					return
				}
				for _, s := range b.Push(token) {
					select {
					case out <- s:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out
}
