package xmlstream

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// SectionStats are the per-section outcome counters carried at the end of
// each document section and echoed in the response headers as CSV.
type SectionStats struct {
	Success      int
	Failure      int
	TotalRecords int
}

// CSV renders the counters in header form: "success,failure,totalRecords".
func (s SectionStats) CSV() string {
	return fmt.Sprintf("%d,%d,%d", s.Success, s.Failure, s.TotalRecords)
}

// ParseSectionStats parses the CSV header form back into counters. Missing
// or malformed fields parse as zero.
func ParseSectionStats(csv string) SectionStats {
	var parts [3]int
	start, idx := 0, 0
	for i := 0; i <= len(csv) && idx < 3; i++ {
		if i == len(csv) || csv[i] == ',' {
			if n, err := strconv.Atoi(csv[start:i]); err == nil {
				parts[idx] = n
			}
			idx++
			start = i + 1
		}
	}
	return SectionStats{Success: parts[0], Failure: parts[1], TotalRecords: parts[2]}
}

// DocumentWriter emits one exchange document: a Content root holding named
// sections, each a sequence of entity elements followed by the section
// counters. Entities are encoded one at a time so the document never has to
// fit in memory.
type DocumentWriter struct {
	bw        *bufio.Writer
	enc       *xml.Encoder
	inSection string
	closed    bool
}

// NewDocumentWriter starts a document on w and writes the Content root.
func NewDocumentWriter(w io.Writer) (*DocumentWriter, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(xml.Header); err != nil {
		return nil, err
	}
	enc := xml.NewEncoder(bw)
	enc.Indent("", "\t")
	dw := &DocumentWriter{bw: bw, enc: enc}
	if err := enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: "Content"}}); err != nil {
		return nil, err
	}
	return dw, nil
}

// BeginSection opens a section element. A non-empty version becomes the
// Version attribute.
func (dw *DocumentWriter) BeginSection(name, version string) error {
	if dw.inSection != "" {
		return fmt.Errorf("section %s still open", dw.inSection)
	}
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if version != "" {
		start.Attr = []xml.Attr{{Name: xml.Name{Local: "Version"}, Value: version}}
	}
	if err := dw.enc.EncodeToken(start); err != nil {
		return err
	}
	dw.inSection = name
	return nil
}

// WriteEntity encodes v as an element with the given name inside the open
// section.
func (dw *DocumentWriter) WriteEntity(name string, v any) error {
	if dw.inSection == "" {
		return fmt.Errorf("no open section for %s", name)
	}
	return dw.enc.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: name}})
}

// WriteRaw copies an already serialized element into the open section. The
// caller guarantees well-formedness.
func (dw *DocumentWriter) WriteRaw(element []byte) error {
	if dw.inSection == "" {
		return fmt.Errorf("no open section")
	}
	if err := dw.enc.Flush(); err != nil {
		return err
	}
	if _, err := dw.bw.Write(element); err != nil {
		return err
	}
	return nil
}

// EndSection writes the counters and closes the section.
func (dw *DocumentWriter) EndSection(stats SectionStats) error {
	if dw.inSection == "" {
		return fmt.Errorf("no open section")
	}
	if err := dw.WriteEntity("Success", stats.Success); err != nil {
		return err
	}
	if err := dw.WriteEntity("Failure", stats.Failure); err != nil {
		return err
	}
	if err := dw.WriteEntity("TotalRecords", stats.TotalRecords); err != nil {
		return err
	}
	return dw.CloseSection()
}

// CloseSection closes the open section without writing counters. The
// compound document uses this: its counters travel in response headers only.
func (dw *DocumentWriter) CloseSection() error {
	if dw.inSection == "" {
		return fmt.Errorf("no open section")
	}
	name := dw.inSection
	dw.inSection = ""
	return dw.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

// Close ends the Content root and flushes all buffers. The writer is
// unusable afterwards.
func (dw *DocumentWriter) Close() error {
	if dw.closed {
		return nil
	}
	dw.closed = true
	if dw.inSection != "" {
		if err := dw.CloseSection(); err != nil {
			return err
		}
	}
	if err := dw.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "Content"}}); err != nil {
		return err
	}
	if err := dw.enc.Flush(); err != nil {
		return err
	}
	return dw.bw.Flush()
}
