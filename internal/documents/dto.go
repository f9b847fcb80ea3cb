package documents

import "time"

// OwnerResponse is the owner summary embedded in document responses.
type OwnerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	FileName    string        `json:"fileName"`
	FileSize    int64         `json:"fileSize"`
	MimeType    string        `json:"mimeType"`
	FileURL     string        `json:"fileUrl"`
	Owner       OwnerResponse `json:"owner"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ListResponse is a page of documents. Limit is omitted when the listing is
// unbounded.
type ListResponse struct {
	Items  []DocumentResponse `json:"items"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset"`
}

// FileURL is the download route for a document's file.
func FileURL(docID string) string {
	return "/api/v1/documents/" + docID + "/file"
}

func toResponse(doc Document, owner Owner) DocumentResponse {
	return DocumentResponse{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		FileName:    doc.FileName,
		FileSize:    doc.FileSize,
		MimeType:    doc.MimeType,
		FileURL:     FileURL(doc.ID),
		Owner:       OwnerResponse{ID: owner.ID, Email: owner.Email},
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
