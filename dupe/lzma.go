package dupe

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// compress wraps data in a classic LZMA stream with the size in the header,
// the layout produced by the game's util.Compress.
func compress(data []byte, dictCap int) ([]byte, error) {
	if dictCap < lzma.MinDictCap {
		dictCap = lzma.MinDictCap
	}
	var out bytes.Buffer
	cfg := lzma.WriterConfig{
		DictCap:      dictCap,
		SizeInHeader: true,
		Size:         int64(len(data)),
	}
	w, err := cfg.NewWriter(&out)
	if err != nil {
		return nil, fmt.Errorf("lzma writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lzma write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma close: %w", err)
	}
	return out.Bytes(), nil
}

// decompress reads a classic LZMA stream from r and returns at most
// maxPayload bytes of plain text.
func decompress(r io.Reader, maxPayload int64) ([]byte, error) {
	hdr := make([]byte, lzma.HeaderLen)
	if n, err := io.ReadFull(r, hdr); err != nil {
		return nil, dataFail(int64(n), "reading lzma header", ErrTruncated)
	}

	size := int64(-1)
	if s := byteOrder.Uint64(hdr[5:]); s != unknownSize {
		if s > uint64(maxPayload) {
			return nil, dataFail(5, fmt.Sprintf("declared size %d over limit %d", s, maxPayload), ErrTooLarge)
		}
		size = int64(s)
	}

	// The reader allocates the declared dictionary up front. A dictionary
	// larger than the payload is never used.
	dictCap := int64(byteOrder.Uint32(hdr[1:5]))
	limit := maxPayload
	if size >= 0 && size < limit {
		limit = size
	}
	if dictCap > limit {
		dictCap = limit
	}
	if dictCap < lzma.MinDictCap {
		dictCap = lzma.MinDictCap
	}
	byteOrder.PutUint32(hdr[1:5], uint32(dictCap))

	lr, err := lzma.NewReader(bufio.NewReader(io.MultiReader(bytes.NewReader(hdr), r)))
	if err != nil {
		return nil, dataFail(0, "lzma header", fmt.Errorf("%w: %v", ErrCompressedBlock, err))
	}

	plain, err := io.ReadAll(io.LimitReader(lr, maxPayload+1))
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, dataFail(-1, fmt.Sprintf("stream ended after %d bytes", len(plain)), ErrTruncated)
		}
		return nil, dataFail(-1, "lzma stream", fmt.Errorf("%w: %v", ErrCompressedBlock, err))
	}
	if int64(len(plain)) > maxPayload {
		return nil, dataFail(-1, fmt.Sprintf("plain text over limit %d", maxPayload), ErrTooLarge)
	}
	if size >= 0 && int64(len(plain)) != size {
		return nil, dataFail(-1, fmt.Sprintf("got %d of %d bytes", len(plain), size), ErrTruncated)
	}
	if size < 0 && !lr.EOSMarker() {
		return nil, dataFail(-1, "stream without size ended before its end marker", ErrTruncated)
	}
	return plain, nil
}

// unknownSize in the header means the stream is ended by a marker.
const unknownSize uint64 = 1<<64 - 1

func dataFail(off int64, reason string, err error) error {
	return &DecodeError{Section: "data", Offset: off, Reason: reason, Err: err}
}
