package subprocess

import "bytes"

// maxLineSize bounds a single buffered line. Longer lines are discarded up to
// the next newline.
const maxLineSize = 16 * 1024 * 1024 // 16MB

// LineBuffer splits a chunked byte stream into lines, carrying the trailing
// partial line across writes.
type LineBuffer struct {
	buf        []byte
	discarding bool
}

// Feed appends chunk and calls emit once for every complete line, without the
// terminating "\n" or "\r\n". The slice passed to emit is only valid for the
// duration of the call.
func (b *LineBuffer) Feed(chunk []byte, emit func(line []byte)) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			b.appendPartial(chunk)

			return
		}

		if b.discarding {
			b.discarding = false
		} else if len(b.buf) == 0 {
			emit(trimCR(chunk[:i]))
		} else {
			b.buf = append(b.buf, chunk[:i]...)
			emit(trimCR(b.buf))
		}

		b.buf = b.buf[:0]
		chunk = chunk[i+1:]
	}
}

// Flush emits the buffered remainder, if any, and resets the buffer.
func (b *LineBuffer) Flush(emit func(line []byte)) {
	if len(b.buf) > 0 && !b.discarding {
		emit(trimCR(b.buf))
	}

	b.buf = b.buf[:0]
	b.discarding = false
}

// Len returns the number of buffered bytes.
func (b *LineBuffer) Len() int {
	return len(b.buf)
}

func (b *LineBuffer) appendPartial(p []byte) {
	if b.discarding {
		return
	}

	if len(b.buf)+len(p) > maxLineSize {
		b.buf = b.buf[:0]
		b.discarding = true

		return
	}

	b.buf = append(b.buf, p...)
}

func trimCR(line []byte) []byte {
	return bytes.TrimSuffix(line, []byte{'\r'})
}
