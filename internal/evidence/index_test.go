package evidence

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planproof/internal/domain"
)

func sampleExtraction() *domain.Extraction {
	return &domain.Extraction{
		PageCount: 2,
		TextBlocks: []domain.TextUnit{
			{PageNumber: 1, Content: "Application for Planning Permission"},
			{PageNumber: 1, Content: "Site Address: 12 High Street"},
			{PageNumber: 2, Content: "Proposed use: residential"},
		},
		Tables: []domain.Table{
			{
				PageNumber:  2,
				RowCount:    1,
				ColumnCount: 2,
				Cells: []domain.TableCell{
					{RowIndex: 0, ColumnIndex: 0, Content: "Reference"},
					{RowIndex: 0, ColumnIndex: 1, Content: "PP-123456"},
				},
			},
		},
	}
}

func TestBuildIndexAssignsStableIDs(t *testing.T) {
	docID := uuid.New()
	idx := BuildIndex(docID, sampleExtraction())

	require.Equal(t, 5, idx.Len())

	u, ok := idx.Lookup("p1b0")
	require.True(t, ok)
	assert.Equal(t, "Application for Planning Permission", u.Content)

	u, ok = idx.Lookup("p2b0")
	require.True(t, ok)
	assert.Equal(t, "Proposed use: residential", u.Content)

	u, ok = idx.Lookup("p2t0r0c1")
	require.True(t, ok)
	assert.Equal(t, "PP-123456", u.Content)
	assert.Equal(t, "tableCell", u.Role)

	// Same extraction indexes to the same IDs.
	idx2 := BuildIndex(docID, sampleExtraction())
	for _, u := range idx.Units() {
		other, ok := idx2.Lookup(u.ID)
		require.True(t, ok, "missing %s on re-index", u.ID)
		assert.Equal(t, u.Content, other.Content)
	}
}

func TestLookupUnknownID(t *testing.T) {
	idx := BuildIndex(uuid.New(), sampleExtraction())

	_, ok := idx.Lookup("p9b9")
	assert.False(t, ok)
}

func TestBlocksExcludesTableCells(t *testing.T) {
	idx := BuildIndex(uuid.New(), sampleExtraction())

	blocks := idx.Blocks()
	require.Len(t, blocks, 3)
	for _, b := range blocks {
		assert.NotEqual(t, "tableCell", b.Role)
	}
}

func TestReferenceTruncatesSnippet(t *testing.T) {
	docID := uuid.New()
	long := strings.Repeat("x", 500)
	idx := BuildIndex(docID, &domain.Extraction{
		TextBlocks: []domain.TextUnit{{PageNumber: 1, Content: long}},
	})

	u, ok := idx.Lookup("p1b0")
	require.True(t, ok)

	ref := idx.Reference(u)
	assert.Equal(t, docID, ref.DocumentID)
	assert.Equal(t, "p1b0", ref.UnitID)
	assert.Equal(t, 1, ref.Page)
	assert.Len(t, ref.Snippet, 240)
}

func TestSnippetCutsOnRuneBoundary(t *testing.T) {
	// A two-byte rune straddling the limit must not leave a broken tail.
	long := strings.Repeat("x", 239) + "é" + strings.Repeat("y", 100)

	got := Snippet(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("x", 239), got)
	assert.LessOrEqual(t, len(got), 240)
}
