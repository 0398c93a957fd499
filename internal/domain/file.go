package domain

import "context"

// ContentTypePNG is the media type of generated QR images
const ContentTypePNG = "image/png"

// FileRepository hosts generated files (student QR images) at a public URL
type FileRepository interface {
	Upload(ctx context.Context, file []byte, filename string, contentType string) (string, error)
}

// QRObjectKey is where a student's QR image is stored
func QRObjectKey(studentID string) string {
	return "qr/" + studentID + ".png"
}
