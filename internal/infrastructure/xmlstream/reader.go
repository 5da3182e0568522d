// Package xmlstream reads and writes the connector exchange documents as
// streams. Catalog files can grow to hundreds of megabytes, so documents are
// never loaded whole: the reader hands out bounded batches of raw child
// elements and the writers emit entities one at a time.
package xmlstream

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// DefaultBatchSize is how many child elements accumulate before the
// processor is invoked.
const DefaultBatchSize = 100

// ProcessBatch receives one batch of raw child elements. Returning false
// stops the read early; remaining elements are not delivered.
type ProcessBatch func(elements [][]byte) (bool, error)

// ReadFragments walks the document to the first element named subtreeName
// and streams its direct children named childName to the processor in
// batches. Children with other names are skipped. Memory stays bounded by
// the batch size times the largest element.
func ReadFragments(r io.Reader, subtreeName, childName string, batchSize int, process ProcessBatch) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	rr := &rawReader{r: r}
	dec := xml.NewDecoder(rr)
	dec.Strict = false

	if err := seekElement(dec, subtreeName); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	batch := make([][]byte, 0, batchSize)
	flush := func() (bool, error) {
		if len(batch) == 0 {
			return true, nil
		}
		cont, err := process(batch)
		batch = batch[:0]
		return cont, err
	}

	for {
		pre := dec.InputOffset()
		rr.discard(pre)
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read %s: %w", subtreeName, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != childName {
				if err := dec.Skip(); err != nil {
					return fmt.Errorf("skip %s: %w", t.Name.Local, err)
				}
				continue
			}
			raw, err := captureElement(dec, rr, pre)
			if err != nil {
				return fmt.Errorf("read %s: %w", childName, err)
			}
			batch = append(batch, raw)
			if len(batch) >= batchSize {
				cont, err := flush()
				if err != nil {
					return err
				}
				if !cont {
					return nil
				}
			}
		case xml.EndElement:
			// End of the subtree.
			_, err := flush()
			return err
		}
	}

	_, err := flush()
	return err
}

// seekElement advances the decoder until it has consumed the start tag of
// the first element with the given local name, at any depth.
func seekElement(dec *xml.Decoder, name string) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == name {
			return nil
		}
	}
}

// captureElement returns the element whose start tag begins at stream offset
// start byte for byte as it appeared in the input, leaving the decoder
// positioned after its end tag. No re-encoding: entity references, attribute
// quoting and CDATA sections survive untouched.
func captureElement(dec *xml.Decoder, rr *rawReader, start int64) ([]byte, error) {
	if err := dec.Skip(); err != nil {
		return nil, err
	}
	return bytes.TrimLeft(rr.slice(start, dec.InputOffset()), " \t\r\n"), nil
}

// rawReader tees everything the decoder consumes so element payloads can be
// sliced out of the stream by offset. Callers discard consumed prefixes to
// keep the buffer bounded by one element plus the decoder's read-ahead.
type rawReader struct {
	r   io.Reader
	buf []byte
	// base is the stream offset of buf[0].
	base int64
}

func (rr *rawReader) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if n > 0 {
		rr.buf = append(rr.buf, p[:n]...)
	}
	return n, err
}

// slice copies out the bytes between two stream offsets.
func (rr *rawReader) slice(start, end int64) []byte {
	out := make([]byte, end-start)
	copy(out, rr.buf[start-rr.base:end-rr.base])
	return out
}

// discard drops buffered bytes before the given stream offset.
func (rr *rawReader) discard(before int64) {
	n := before - rr.base
	if n <= 0 {
		return
	}
	if n >= int64(len(rr.buf)) {
		rr.buf = rr.buf[:0]
	} else {
		rr.buf = append(rr.buf[:0], rr.buf[n:]...)
	}
	rr.base = before
}
