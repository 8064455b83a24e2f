// Package internal contains helpers shared by the backend fixture and the
// adapter.
package internal

import (
	"io"
	"unicode/utf8"

	"github.com/ProtonMail/sop-external/sop"
)

// ErrIncorrectUtf8 is returned when text input is not valid utf-8.
var ErrIncorrectUtf8 = sop.NewError(sop.KindExpectedText, "data encoding is not valid utf-8")

const maxSize = 4

type utf8Checker struct {
	overflow [maxSize]byte
	to       int
}

func (c *utf8Checker) check(p []byte) error {
	var pos int
	if c.to > 0 {
		copied := copy(c.overflow[c.to:], p)
		c.to += copied
		r, runeSize := utf8.DecodeRune(c.overflow[:c.to])
		if r == utf8.RuneError {
			if c.to >= maxSize {
				return ErrIncorrectUtf8
			}
			// Could still be valid utf-8 on next check
			return nil
		}
		pos = copied - (c.to - runeSize)
		c.to = 0
	}
	for pos < len(p) {
		if p[pos] < utf8.RuneSelf {
			pos++
			continue
		}
		r, sizeRune := utf8.DecodeRune(p[pos:])
		if r == utf8.RuneError && sizeRune == 1 {
			remaining := len(p) - pos
			if remaining >= maxSize {
				return ErrIncorrectUtf8
			}
			copy(c.overflow[:], p[pos:])
			c.to = remaining
			break
		}
		pos += sizeRune
	}
	return nil
}

func (c *utf8Checker) close() error {
	if c.to > 0 {
		return ErrIncorrectUtf8
	}
	return nil
}

// Utf8CheckWriter forwards writes to an underlying writer and fails with
// ErrIncorrectUtf8 as soon as the stream stops being valid utf-8.
// Close must be called to detect a truncated trailing rune.
type Utf8CheckWriter struct {
	utf8Checker
	internal io.Writer
}

func NewUtf8CheckWriter(wrap io.Writer) *Utf8CheckWriter {
	return &Utf8CheckWriter{
		internal: wrap,
	}
}

func (cw *Utf8CheckWriter) Write(p []byte) (n int, err error) {
	if err = cw.check(p); err != nil {
		return
	}
	return cw.internal.Write(p)
}

func (cw *Utf8CheckWriter) Close() error {
	if err := cw.close(); err != nil {
		return err
	}
	if closer, ok := cw.internal.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ReadUtf8 reads r to the end and fails if the content is not valid utf-8.
func ReadUtf8(w io.Writer, r io.Reader) (int64, error) {
	cw := NewUtf8CheckWriter(w)
	n, err := io.Copy(cw, r)
	if err != nil {
		return n, err
	}
	return n, cw.close()
}
