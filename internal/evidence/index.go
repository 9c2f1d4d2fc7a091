package evidence

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"planproof/internal/domain"
)

// snippetMaxLen bounds the evidence snippet stored alongside a reference.
const snippetMaxLen = 240

// Index gives stable addressable IDs to every text unit of one document's
// extraction, so downstream stages can cite sources without copying content.
// Built once per document; read-only afterwards.
type Index struct {
	documentID uuid.UUID
	units      []domain.TextUnit
	byID       map[string]int
}

// BuildIndex assigns IDs to all blocks and table cells of an extraction.
// Block IDs are "p<page>b<ordinal>", cell IDs "p<page>t<table>r<row>c<col>".
// Re-indexing the same extraction yields identical IDs.
func BuildIndex(documentID uuid.UUID, ex *domain.Extraction) *Index {
	idx := &Index{
		documentID: documentID,
		byID:       make(map[string]int),
	}

	blockOrd := make(map[int]int)
	for _, b := range ex.TextBlocks {
		u := b
		if u.ID == "" {
			u.ID = fmt.Sprintf("p%db%d", u.PageNumber, blockOrd[u.PageNumber])
		}
		blockOrd[u.PageNumber]++
		idx.add(u)
	}

	for ti, t := range ex.Tables {
		for _, c := range t.Cells {
			u := domain.TextUnit{
				ID:         fmt.Sprintf("p%dt%dr%dc%d", t.PageNumber, ti, c.RowIndex, c.ColumnIndex),
				PageNumber: t.PageNumber,
				Content:    c.Content,
				Role:       "tableCell",
			}
			idx.add(u)
		}
	}

	return idx
}

func (i *Index) add(u domain.TextUnit) {
	if _, exists := i.byID[u.ID]; exists {
		return
	}
	i.byID[u.ID] = len(i.units)
	i.units = append(i.units, u)
}

// DocumentID returns the document this index belongs to.
func (i *Index) DocumentID() uuid.UUID {
	return i.documentID
}

// Units returns all indexed units in document order.
func (i *Index) Units() []domain.TextUnit {
	return i.units
}

// Blocks returns only the paragraph-style units, excluding table cells.
func (i *Index) Blocks() []domain.TextUnit {
	var out []domain.TextUnit
	for _, u := range i.units {
		if u.Role != "tableCell" {
			out = append(out, u)
		}
	}
	return out
}

// Lookup returns the unit with the given ID, or false if unknown.
func (i *Index) Lookup(unitID string) (domain.TextUnit, bool) {
	pos, ok := i.byID[unitID]
	if !ok {
		return domain.TextUnit{}, false
	}
	return i.units[pos], true
}

// Len returns the number of indexed units.
func (i *Index) Len() int {
	return len(i.units)
}

// Reference builds an evidence reference for a unit, with the snippet
// truncated for display.
func (i *Index) Reference(u domain.TextUnit) domain.EvidenceReference {
	return domain.EvidenceReference{
		DocumentID: i.documentID,
		UnitID:     u.ID,
		Page:       u.PageNumber,
		Snippet:    Snippet(u.Content),
	}
}

// Snippet truncates content to the evidence display length, backing off to
// a rune boundary so stored snippets stay valid UTF-8.
func Snippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= snippetMaxLen {
		return content
	}
	cut := snippetMaxLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
