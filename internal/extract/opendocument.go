package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// odContentPath is the path to the main content inside OpenDocument packages.
const odContentPath = "content.xml"

// OpenDocument text element patterns, with optional attributes on the opening tag.
var (
	odTextP    = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odTextSpan = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odTextH    = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

// extractOpenDocument extracts text from an OpenDocument (.ods/.odp) package:
// a ZIP containing content.xml whose text lives in text:p, text:span, and
// text:h elements.
func extractOpenDocument(content []byte, format string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	contentXML, err := readZipFile(zr, odContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if contentXML == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, odContentPath)
	}
	s := string(contentXML)
	var b strings.Builder
	appendMatches := func(parts [][]string) {
		for _, p := range parts {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(p[1]))
		}
	}
	appendMatches(odTextP.FindAllStringSubmatch(s, -1))
	appendMatches(odTextSpan.FindAllStringSubmatch(s, -1))
	appendMatches(odTextH.FindAllStringSubmatch(s, -1))
	return strings.TrimSpace(b.String()), nil
}

func extractODS(content []byte) (string, error) {
	return extractOpenDocument(content, "ODS")
}

func extractODP(content []byte) (string, error) {
	return extractOpenDocument(content, "ODP")
}
