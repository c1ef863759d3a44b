package sigmax

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-signal-relay/core"
)

// Document is one artifact attached to a case.
type Document struct {
	ID        string
	Format    string
	Extension string
	Content   []byte
}

// Filename builds the attachment filename from the signal id, for example
// "42.pdf" or "42.jpg".
func (d Document) Filename(signalID string) string {
	return strings.TrimSpace(signalID) + "." + d.Extension
}

func (d Document) ContentBase64() string {
	return base64.StdEncoding.EncodeToString(d.Content)
}

// ArtifactBuilder produces the documents that accompany a case: a generated
// PDF summary and, when the signal carries an image URL, the photo itself.
type ArtifactBuilder struct {
	Transport core.TransportAdapter
	Timeout   time.Duration
	NewID     func() string
}

func NewArtifactBuilder(adapter core.TransportAdapter) *ArtifactBuilder {
	return &ArtifactBuilder{
		Transport: adapter,
		Timeout:   defaultRequestTimeout,
		NewID:     uuid.NewString,
	}
}

// SummaryPDF renders a single page PDF describing the signal. The document
// body is plain PDF 1.4 syntax so no rendering toolchain is needed.
func (b *ArtifactBuilder) SummaryPDF(signal core.Signal) (Document, error) {
	signalID := signal.ID()
	if signalID == "" {
		return Document{}, fmt.Errorf("sigmax: signal id is required")
	}

	lines := []string{
		"Melding " + signalID,
		"Aangemaakt: " + signal.String("created_at"),
	}
	if text := signal.String("text"); text != "" {
		lines = append(lines, "Omschrijving: "+text)
	}
	if street := signal.LookupString("location", "address", "openbare_ruimte"); street != "" {
		address := street
		if number := signal.LookupString("location", "address", "huisnummer"); number != "" {
			address += " " + number
		}
		lines = append(lines, "Adres: "+address)
	}

	return Document{
		ID:        b.newID(),
		Format:    "application/pdf",
		Extension: "pdf",
		Content:   renderPDF(lines),
	}, nil
}

// FetchImage downloads the photo referenced by the signal's image URL. A
// missing URL, a transport error, or a non-200 response all return ok=false
// so the caller skips the attachment without failing the delivery.
func (b *ArtifactBuilder) FetchImage(ctx context.Context, signal core.Signal) (Document, bool) {
	imageURL := signal.String("image")
	if imageURL == "" || b == nil || b.Transport == nil {
		return Document{}, false
	}

	response, err := b.Transport.Do(ctx, core.TransportRequest{
		Method:  http.MethodGet,
		URL:     imageURL,
		Timeout: b.timeout(),
	})
	if err != nil || response.StatusCode != http.StatusOK || len(response.Body) == 0 {
		return Document{}, false
	}

	return Document{
		ID:        b.newID(),
		Format:    "image/jpeg",
		Extension: "jpg",
		Content:   response.Body,
	}, true
}

func (b *ArtifactBuilder) newID() string {
	if b != nil && b.NewID != nil {
		return b.NewID()
	}
	return uuid.NewString()
}

func (b *ArtifactBuilder) timeout() time.Duration {
	if b != nil && b.Timeout > 0 {
		return b.Timeout
	}
	return defaultRequestTimeout
}

// renderPDF writes a minimal one page PDF with Helvetica text, one input
// line per text line. Parentheses and backslashes are escaped per the PDF
// string syntax.
func renderPDF(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 12 Tf 50 780 Td 16 TL\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		fmt.Fprintf(&content, "(%s) Tj\n", escapePDFText(line))
	}
	content.WriteString("ET\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, object := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, object)
	}

	xrefOffset := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xrefOffset)
	return out.Bytes()
}

var pdfTextEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"(", "\\(",
	")", "\\)",
	"\r", " ",
	"\n", " ",
)

func escapePDFText(text string) string {
	return pdfTextEscaper.Replace(text)
}
