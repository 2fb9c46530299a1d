package erptest

import (
	"fmt"
	"strconv"

	"github.com/Get-Company/GC-Bridge-4/internal/erp"
)

// Document is a fake sales document with nested line positions. Posted
// documents are mirrored into the Vorgang table so keyed and filtered
// header lookups see them.
type Document struct {
	ID           string
	DocumentType int
	PartyKey     string
	Header       map[string]any
	Lines        []*Position
	Posted       bool
}

// Position is one fake document line.
type Position struct {
	Quantity   int
	Unit       string
	ArticleKey string
	Text       string
	PriceNet   float64
	PriceGross float64
}

// documentHandle implements erp.DocumentObject against the store.
type documentHandle struct {
	store *Store
	doc   *Document
}

func (h *documentHandle) Edit(documentID string) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	doc, ok := h.store.documents[documentID]
	if !ok {
		return fmt.Errorf("erptest: no document %q", documentID)
	}
	h.doc = doc
	return nil
}

func (h *documentHandle) Append(documentType int, partyKey string) error {
	h.store.mu.Lock()
	h.store.docCounter++
	id := "LF" + strconv.Itoa(2400000+h.store.docCounter)
	doc := &Document{
		ID:           id,
		DocumentType: documentType,
		PartyKey:     partyKey,
		Header:       map[string]any{"BelegNr": id, "AdrNr": partyKey},
	}
	h.store.documents[id] = doc
	h.doc = doc
	h.store.mu.Unlock()
	h.syncHeaderRow(doc)
	return nil
}

func (h *documentHandle) Post() error {
	if h.doc == nil {
		return fmt.Errorf("erptest: post without open document")
	}
	h.doc.Posted = true
	h.syncHeaderRow(h.doc)
	return nil
}

// syncHeaderRow mirrors the document header into the Vorgang table.
func (h *documentHandle) syncHeaderRow(doc *Document) {
	h.store.mu.Lock()
	t := h.store.tables[erp.DatasetVorgang]
	var row map[string]any
	for _, r := range t.rows {
		if fmt.Sprint(r["BelegNr"]) == doc.ID {
			row = r
			break
		}
	}
	if row == nil {
		row = map[string]any{}
		t.rows = append(t.rows, row)
	}
	row["BelegNr"] = doc.ID
	row["AdrNr"] = doc.PartyKey
	for k, v := range doc.Header {
		row[k] = v
	}
	h.store.mu.Unlock()
}

func (h *documentHandle) GetField(name string) string {
	if h.doc == nil {
		return ""
	}
	if v, ok := h.doc.Header[name]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func (h *documentHandle) SetField(name string, value any) error {
	if h.doc == nil {
		return fmt.Errorf("erptest: set field without open document")
	}
	h.doc.Header[name] = value
	h.syncHeaderRow(h.doc)
	return nil
}

func (h *documentHandle) Positions() erp.PositionCollection {
	return &positionCollection{handle: h}
}

type positionCollection struct {
	handle *documentHandle
}

func (p *positionCollection) doc() (*Document, error) {
	if p.handle.doc == nil {
		return nil, fmt.Errorf("erptest: positions without open document")
	}
	return p.handle.doc, nil
}

func (p *positionCollection) Add(quantity int, unit, articleKey string) error {
	doc, err := p.doc()
	if err != nil {
		return err
	}
	doc.Lines = append(doc.Lines, &Position{Quantity: quantity, Unit: unit, ArticleKey: articleKey})
	return nil
}

func (p *positionCollection) Count() (int, error) {
	doc, err := p.doc()
	if err != nil {
		return 0, err
	}
	return len(doc.Lines), nil
}

func (p *positionCollection) DeleteFirst() error {
	doc, err := p.doc()
	if err != nil {
		return err
	}
	if len(doc.Lines) == 0 {
		return fmt.Errorf("erptest: no positions to delete")
	}
	doc.Lines = doc.Lines[1:]
	return nil
}

func (p *positionCollection) currentLine() (*Position, error) {
	doc, err := p.doc()
	if err != nil {
		return nil, err
	}
	if len(doc.Lines) == 0 {
		return nil, fmt.Errorf("erptest: no current position")
	}
	return doc.Lines[len(doc.Lines)-1], nil
}

func (p *positionCollection) SetText(text string) error {
	line, err := p.currentLine()
	if err != nil {
		return err
	}
	line.Text = text
	return nil
}

func (p *positionCollection) SetPriceNet(amount float64) error {
	line, err := p.currentLine()
	if err != nil {
		return err
	}
	line.PriceNet = amount
	return nil
}

func (p *positionCollection) SetPriceGross(amount float64) error {
	line, err := p.currentLine()
	if err != nil {
		return err
	}
	line.PriceGross = amount
	return nil
}
