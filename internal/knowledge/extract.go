package knowledge

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"
)

// routing outcome for an uploaded mime type
type route int

const (
	routeText route = iota
	routeMedia
	routeUnsupported
)

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var textMimeTypes = map[string]bool{
	"application/json":   true,
	"application/xml":    true,
	"application/x-yaml": true,
	docxMimeType:         true,
}

var mediaMimePrefixes = []string{
	"image/",
	"audio/",
	"video/",
}

var mediaMimeTypes = map[string]bool{
	"application/pdf": true,
}

// classifyMime decides whether an upload is read inline as text, kept as a
// media reference for native engine upload, or rejected. DOCX is a text
// route: its XML is unpacked here, never shipped to the engine as media.
func classifyMime(mimeType string) route {
	mt := normalizeMime(mimeType)

	if strings.HasPrefix(mt, "text/") {
		return routeText
	}
	if textMimeTypes[mt] {
		return routeText
	}
	for _, prefix := range mediaMimePrefixes {
		if strings.HasPrefix(mt, prefix) {
			return routeMedia
		}
	}
	if mediaMimeTypes[mt] {
		return routeMedia
	}
	return routeUnsupported
}

func normalizeMime(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}

// extractArtifactText converts raw upload bytes into prompt-safe text,
// choosing the extractor by mime type.
func extractArtifactText(mimeType string, content []byte) (string, bool) {
	if normalizeMime(mimeType) == docxMimeType {
		return extractDocxText(content)
	}
	return extractText(content)
}

func extractText(content []byte) (string, bool) {
	if !utf8.Valid(content) {
		return "", false
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", false
	}
	return text, true
}

// extractDocxText pulls the visible text runs out of word/document.xml,
// one line per paragraph.
func extractDocxText(content []byte) (string, bool) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", false
	}

	var doc io.ReadCloser
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			opened, err := f.Open()
			if err != nil {
				return "", false
			}
			doc = opened
			break
		}
	}
	if doc == nil {
		return "", false
	}
	defer doc.Close()

	var (
		b      strings.Builder
		inText bool
	)
	decoder := xml.NewDecoder(doc)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", false
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", false
	}
	return text, true
}
