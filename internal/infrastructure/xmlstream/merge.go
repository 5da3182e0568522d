package xmlstream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MergeCompound builds the compound exchange document from two partial
// documents: the category document first, then the product document. Entity
// elements are relayed verbatim; the per-section counters are parsed out of
// the sources and returned for the response headers. A nil source yields an
// empty section with zero counters.
func MergeCompound(dst io.Writer, categoryDoc, productDoc io.Reader, version string) (catStats, prodStats SectionStats, err error) {
	dw, err := NewDocumentWriter(dst)
	if err != nil {
		return catStats, prodStats, err
	}

	catStats, err = relaySection(dw, categoryDoc, "Categories", "Category", version)
	if err != nil {
		return catStats, prodStats, err
	}
	prodStats, err = relaySection(dw, productDoc, "Products", "Product", version)
	if err != nil {
		return catStats, prodStats, err
	}

	return catStats, prodStats, dw.Close()
}

// relaySection copies the named section of src into dw: a section element
// with the Version attribute and every child entity element. Counter
// elements are parsed for the return value but not relayed; the compound
// document carries them in headers instead.
func relaySection(dw *DocumentWriter, src io.Reader, sectionName, childName, version string) (SectionStats, error) {
	var stats SectionStats

	if err := dw.BeginSection(sectionName, version); err != nil {
		return stats, err
	}
	if src == nil {
		return stats, dw.CloseSection()
	}

	rr := &rawReader{r: src}
	dec := xml.NewDecoder(rr)
	dec.Strict = false

	if err := seekElement(dec, sectionName); err != nil {
		if errors.Is(err, io.EOF) {
			return stats, dw.CloseSection()
		}
		return stats, err
	}

loop:
	for {
		pre := dec.InputOffset()
		rr.discard(pre)
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return stats, fmt.Errorf("merge %s: %w", sectionName, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case childName:
				raw, err := captureElement(dec, rr, pre)
				if err != nil {
					return stats, fmt.Errorf("merge %s: %w", childName, err)
				}
				if err := dw.WriteRaw(raw); err != nil {
					return stats, err
				}
			case "Success":
				stats.Success = decodeInt(dec, &t)
			case "Failure":
				stats.Failure = decodeInt(dec, &t)
			case "TotalRecords":
				stats.TotalRecords = decodeInt(dec, &t)
			default:
				if err := dec.Skip(); err != nil {
					return stats, err
				}
			}
		case xml.EndElement:
			break loop
		}
	}

	return stats, dw.CloseSection()
}

func decodeInt(dec *xml.Decoder, start *xml.StartElement) int {
	var raw string
	if err := dec.DecodeElement(&raw, start); err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
