package pass

import (
	"fmt"
	"strings"
	"time"

	"cragline/backend/internal/validate"
)

// Symbology names the barcode format the scanner reported. The constants are
// the formats the wallet renders; other scanner names are stored as given.
type Symbology string

const (
	SymbologyQR         Symbology = "qr"
	SymbologyCode128    Symbology = "code128"
	SymbologyCode39     Symbology = "code39"
	SymbologyPDF417     Symbology = "pdf417"
	SymbologyAztec      Symbology = "aztec"
	SymbologyDataMatrix Symbology = "dataMatrix"
	SymbologyEAN13      Symbology = "ean13"
	SymbologyEAN8       Symbology = "ean8"
	SymbologyCode93     Symbology = "code93"
	SymbologyUPCE       Symbology = "upce"
	SymbologyITF14      Symbology = "itf14"
	SymbologyI2of5      Symbology = "interleaved2of5"
)

type Barcode struct {
	Payload   string    `firestore:"payload" json:"payload" validate:"required,max=2048"`
	Symbology Symbology `firestore:"symbology" json:"symbology" validate:"required,max=32,printascii"`
}

// Key identifies a barcode for duplicate detection.
func (b Barcode) Key() string {
	return string(b.Symbology) + "|" + b.Payload
}

type Pass struct {
	ID        string    `firestore:"-" json:"id"`
	Title     string    `firestore:"title" json:"title" validate:"required,max=120"`
	IssueDate time.Time `firestore:"issueDate" json:"issueDate"`
	Barcode   Barcode   `firestore:"barcode" json:"barcode"`
	IsPrimary bool      `firestore:"isPrimary" json:"isPrimary"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// Validate requires a title and a complete barcode.
func (p Pass) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	return nil
}

type AddInput struct {
	Title       string     `json:"title"`
	IssueDate   *time.Time `json:"issueDate,omitempty"`
	Payload     string     `json:"payload"`
	Symbology   Symbology  `json:"symbology"`
	MakePrimary bool       `json:"makePrimary"`
}

func (in *AddInput) Trim() {
	in.Title = strings.TrimSpace(in.Title)
	in.Symbology = Symbology(strings.TrimSpace(string(in.Symbology)))
	// payload is left as scanned
}

type ImportInput struct {
	AddInput
	ScannerStatus ScannerStatus `json:"scannerStatus"`
}
