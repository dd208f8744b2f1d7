package walker

import (
	"bytes"
	"errors"
	"io"
	"os"
	"unicode/utf8"
)

// binarySniffWindow is how much of a file's head is inspected to classify it
// as binary or text.
const binarySniffWindow = 8 * 1024

// IsBinaryFile classifies path as binary by reading at most its first 8KiB:
// the file is binary if that window contains a NUL byte, or if it cannot be
// decoded as UTF-8 up to the last complete rune in the window. A permission
// or other read error is returned as-is and must not be interpreted as
// "binary" by the caller.
func IsBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, binarySniffWindow)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	return IsBinaryContent(buf[:n]), nil
}

// IsBinaryContent applies the NUL-byte-or-invalid-UTF-8 heuristic to an
// already-read buffer.
func IsBinaryContent(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return true
	}

	b := content
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			// A genuinely invalid sequence. A single trailing truncated
			// multi-byte rune at the very end of the window is expected
			// (we may have cut a codepoint in half) and is not an error.
			if len(b) >= utf8.UTFMax {
				return true
			}
			if !utf8.RuneStart(b[0]) {
				return true
			}
			break
		}
		b = b[size:]
	}
	return false
}
