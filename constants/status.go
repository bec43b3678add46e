package constants

// DocumentStatus is the canonical status for rows in documents.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentStatusPending   DocumentStatus = "PENDING"   // ingested, no text yet
	DocumentStatusProcessed DocumentStatus = "PROCESSED" // text extracted and fingerprinted
	DocumentStatusClustered DocumentStatus = "CLUSTERED" // assigned to a cluster
	DocumentStatusMapped    DocumentStatus = "MAPPED"    // covered by a template
	DocumentStatusReviewed  DocumentStatus = "REVIEWED"  // extraction results reviewed
	DocumentStatusError     DocumentStatus = "ERROR"     // terminal failure
)
