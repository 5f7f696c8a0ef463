package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// pptxSlidePathPrefix is the path prefix for slide XML files inside a .pptx zip.
const pptxSlidePathPrefix = "ppt/slides/slide"

// atTag matches <a:t>text</a:t> including attributed forms.
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// slideNumber matches the N in ppt/slides/slideN.xml.
var slideNumber = regexp.MustCompile(`slide(\d+)\.xml$`)

// extractPPTX extracts text from .pptx bytes. PPTX is a ZIP containing
// ppt/slides/slideN.xml (OOXML); each slide's <a:t>...</a:t> text nodes are
// collected under a "Slide N:" header so provenance is visible in the output.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	type slideFile struct {
		name string
		num  int
	}
	var slides []slideFile
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePathPrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		m := slideNumber.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{name: f.Name, num: n})
	}
	// Zip entry order is not guaranteed to follow slide order, and a
	// lexicographic sort puts slide10 before slide2. Order by slide number.
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var buf strings.Builder
	for _, slide := range slides {
		data, err := readZipFile(zr, slide.name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		parts := atTag.FindAllStringSubmatch(string(data), -1)
		if len(parts) == 0 {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "Slide %d:\n", slide.num)
		for j, p := range parts {
			if j > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(strings.TrimSpace(p[1]))
		}
		buf.WriteByte('\n')
	}
	return strings.TrimSpace(buf.String()), nil
}
