package printing

import (
	"bytes"
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// Document is a finished invoice. Its bytes never change once encoded.
type Document struct {
	orderID      uuid.UUID
	data         []byte
	encoded      string
	grandTotal   int64
	rows         int
	fallbackRows int
}

// OrderID returns the id of the order the document was generated for
func (d *Document) OrderID() uuid.UUID { return d.orderID }

// Bytes returns a copy of the raw PDF bytes
func (d *Document) Bytes() []byte { return bytes.Clone(d.data) }

// Encoded returns the base64 form of the PDF for transport
func (d *Document) Encoded() string { return d.encoded }

// Size is the length of the raw PDF in bytes
func (d *Document) Size() int { return len(d.data) }

// GrandTotalMinor is the invoice total in minor units
func (d *Document) GrandTotalMinor() int64 { return d.grandTotal }

// Rows is the number of line items drawn
func (d *Document) Rows() int { return d.rows }

// FallbackRows is the number of rows drawn with a placeholder instead of an image
func (d *Document) FallbackRows() int { return d.fallbackRows }

// NewDocument wraps already-encoded PDF bytes, e.g. when served from a cache
func NewDocument(orderID uuid.UUID, data []byte, grandTotal int64, rows, fallbackRows int) *Document {
	raw := bytes.Clone(data)
	return &Document{
		orderID:      orderID,
		data:         raw,
		encoded:      EncodeBase64(raw),
		grandTotal:   grandTotal,
		rows:         rows,
		fallbackRows: fallbackRows,
	}
}

// Encode serializes the canvas into PDF bytes. The canvas cannot be drawn on afterwards.
func Encode(c *Canvas) ([]byte, error) {
	if c == nil {
		return nil, NewRenderError(ErrCodeEncodingFailed, "canvas is nil", nil)
	}
	if c.sealed {
		return nil, NewRenderError(ErrCodeEncodingFailed, "canvas already encoded", nil)
	}
	if c.pdf.Err() {
		return nil, NewRenderError(ErrCodeEncodingFailed, "document is in error state", c.pdf.Error())
	}

	var buf bytes.Buffer
	err := c.pdf.Output(&buf)
	c.sealed = true
	if err != nil {
		return nil, NewRenderError(ErrCodeEncodingFailed, "failed to serialize PDF", err)
	}
	if buf.Len() == 0 {
		return nil, NewRenderError(ErrCodeEncodingFailed, "generated PDF is empty", nil)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 encodes PDF bytes with standard padded base64
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 reverses EncodeBase64
func DecodeBase64(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("encoded document is empty")
	}
	return base64.StdEncoding.DecodeString(encoded)
}
