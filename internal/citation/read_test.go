// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines(t *testing.T) {
	in := "# exported from zotero\n\nSmith, J. (2020). A.\n   Doe, K. (2019). B.  \n"
	got, err := ReadLines(strings.NewReader(in), "refs.txt")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Smith, J. (2020). A.", got[0].Text)
	assert.Equal(t, 3, got[0].Position)
	assert.Equal(t, "Doe, K. (2019). B.", got[1].Text)
	assert.Equal(t, 4, got[1].Position)
	assert.Equal(t, "refs.txt", got[1].Source)
}

func TestReadCSVColumn(t *testing.T) {
	in := "doi,Citation\n10.1/x,\"Smith, J. (2020). T.\"\n,\n"
	got, err := ReadCSVColumn(strings.NewReader(in), "citation", "refs.csv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Smith, J. (2020). T.", got[0].Text)
	assert.Equal(t, 2, got[0].Position)

	_, err = ReadCSVColumn(strings.NewReader(in), "query_text", "refs.csv")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestReadBibliography(t *testing.T) {
	content := strings.Join([]string{
		"# Paper",
		"Body text citing [1].",
		"## References",
		"[1] Smith, J. (2020). A.",
		"continued line.",
		"[2] Doe, K. (2019). B.",
		"## Appendix",
		"[3] not included",
	}, "\n")

	got := ReadBibliography(content, "paper.md")
	require.Len(t, got, 2)
	assert.Equal(t, "Smith, J. (2020). A. continued line.", got[0].Text)
	assert.Equal(t, 4, got[0].Position)
	assert.Equal(t, "Doe, K. (2019). B.", got[1].Text)
	assert.Equal(t, 6, got[1].Position)

	assert.Nil(t, ReadBibliography("# Title\nno references here", "x.md"))
}

func TestReadBibliographyNumberedList(t *testing.T) {
	content := "## Bibliography\n\n1. First entry.\n2) Second entry.\n- Third entry.\n"
	got := ReadBibliography(content, "paper.md")
	require.Len(t, got, 3)
	assert.Equal(t, "First entry.", got[0].Text)
	assert.Equal(t, "Third entry.", got[2].Text)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "refs.txt")
	require.NoError(t, os.WriteFile(txt, []byte("one\ntwo\n"), 0o644))
	got, err := ReadFile(txt, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	csvPath := filepath.Join(dir, "refs.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("citation\nalpha\n"), 0o644))
	got, err = ReadFile(csvPath, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alpha", got[0].Text)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"), "")
	assert.Error(t, err)
}

func TestReadReferences(t *testing.T) {
	text := strings.Join([]string{
		"Deep Learning Basics",
		"1 Introduction",
		"We cite prior work [1].",
		"7 References",
		"[1] Smith, J. (2020). Deep learning",
		"basics. J. ML Research.",
		"[2] Doe, J. 2019. Graphs. 10.1000/g",
	}, "\n")

	got := ReadReferences(text, "paper.pdf")
	require.Len(t, got, 2)
	assert.Equal(t, "Smith, J. (2020). Deep learning basics. J. ML Research.", got[0].Text)
	assert.Equal(t, 5, got[0].Position)
	assert.Equal(t, "paper.pdf", got[1].Source)
	assert.Equal(t, 7, got[1].Position)
}

func TestReadReferencesHeadings(t *testing.T) {
	for _, heading := range []string{"References", "REFERENCES", "VII. Bibliography", "## Works Cited", "Literature cited"} {
		t.Run(heading, func(t *testing.T) {
			got := ReadReferences(heading+"\n1. Only entry.\n", "x")
			require.Len(t, got, 1)
			assert.Equal(t, "Only entry.", got[0].Text)
		})
	}
	assert.Nil(t, ReadReferences("See the references below.\n1. Not a list.\n", "x"))
}

func TestReadPDFRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this file is plain text, not a portable document"), 0o644))
	_, err := ReadFile(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening pdf")
}
