package domain

import "time"

// Attachment binds an uploaded blob to a ticket. StoredName is the
// opaque collision-resistant key under which the blob store keeps the
// bytes; OriginalName is what the uploader called the file.
type Attachment struct {
	ID           string
	TicketID     string
	UploadedByID string
	StoredName   string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	UploadedAt   time.Time
}
