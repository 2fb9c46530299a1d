package erpgate

import (
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/erp"
)

// document proxies the soVorgang special object on the gateway. It
// implements erp.DocumentObject.
type document struct {
	session *session
	handle  string
}

func (d *document) call(op string, args ...any) (*callResult, error) {
	return d.session.call("/v1/documents/"+d.handle, op, args...)
}

func (d *document) Edit(documentID string) error {
	_, err := d.call("edit", documentID)
	return err
}

func (d *document) Append(documentType int, partyKey string) error {
	_, err := d.call("append", documentType, partyKey)
	return err
}

func (d *document) Post() error {
	_, err := d.call("post")
	return err
}

func (d *document) GetField(name string) string {
	result, err := d.call("fieldGet", name)
	if err != nil {
		d.session.factory.logger.Error("document field read failed",
			zap.String("field", name), zap.Error(err))
		return ""
	}
	return result.Value
}

func (d *document) SetField(name string, value any) error {
	_, err := d.call("fieldSet", name, value)
	return err
}

func (d *document) Positions() erp.PositionCollection {
	return &positions{doc: d}
}

// positions operates on the document's line-position collection. The
// current position is the one most recently added, like the underlying
// automation object.
type positions struct {
	doc *document
}

func (p *positions) Add(quantity int, unit, articleKey string) error {
	_, err := p.doc.call("positionAdd", quantity, unit, articleKey)
	return err
}

func (p *positions) Count() (int, error) {
	result, err := p.doc.call("positionCount")
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (p *positions) DeleteFirst() error {
	_, err := p.doc.call("positionDeleteFirst")
	return err
}

func (p *positions) SetText(text string) error {
	_, err := p.doc.call("positionSetText", text)
	return err
}

func (p *positions) SetPriceNet(amount float64) error {
	_, err := p.doc.call("positionSetPriceNet", amount)
	return err
}

func (p *positions) SetPriceGross(amount float64) error {
	_, err := p.doc.call("positionSetPriceGross", amount)
	return err
}
