package knowledge

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMime(t *testing.T) {
	cases := []struct {
		mime string
		want route
	}{
		{"text/plain", routeText},
		{"text/plain; charset=utf-8", routeText},
		{"text/markdown", routeText},
		{"application/json", routeText},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", routeText},
		{"application/pdf", routeMedia},
		{"image/png", routeMedia},
		{"audio/ogg", routeMedia},
		{"video/mp4", routeMedia},
		{"application/msword", routeUnsupported},
		{"application/octet-stream", routeUnsupported},
		{"", routeUnsupported},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyMime(tc.mime), "mime %q", tc.mime)
	}
}

func TestExtractText(t *testing.T) {
	text, ok := extractText([]byte("  hello world \n"))
	assert.True(t, ok)
	assert.Equal(t, "hello world", text)

	_, ok = extractText([]byte{0xff, 0xfe, 0x00})
	assert.False(t, ok)

	_, ok = extractText([]byte("   "))
	assert.False(t, ok)
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractDocxText(t *testing.T) {
	docx := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
	<w:body>
		<w:p><w:r><w:t>Primeiro parágrafo.</w:t></w:r></w:p>
		<w:p><w:r><w:t>Segundo </w:t></w:r><w:r><w:t>parágrafo.</w:t></w:r></w:p>
	</w:body>
</w:document>`)

	text, ok := extractDocxText(docx)
	require.True(t, ok)
	assert.Equal(t, "Primeiro parágrafo.\nSegundo parágrafo.", text)
}

func TestExtractArtifactTextDispatchesDocx(t *testing.T) {
	docx := buildDocx(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body><w:p><w:r><w:t>Conteúdo do material.</w:t></w:r></w:p></w:body>
</w:document>`)

	text, ok := extractArtifactText(docxMimeType, docx)
	require.True(t, ok)
	assert.Equal(t, "Conteúdo do material.", text)

	text, ok = extractArtifactText("text/plain", []byte("plain body"))
	require.True(t, ok)
	assert.Equal(t, "plain body", text)
}

func TestExtractDocxTextRejectsGarbage(t *testing.T) {
	_, ok := extractDocxText([]byte("not a zip archive"))
	assert.False(t, ok)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, ok = extractDocxText(buf.Bytes())
	assert.False(t, ok)
}
