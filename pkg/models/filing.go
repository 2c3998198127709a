package models

import "time"

// Filing describes one regulatory filing for a company
type Filing struct {
	Ticker      string    `json:"ticker"`
	CIK         string    `json:"cik"`
	AccessionNo string    `json:"accession_no"`
	FormType    string    `json:"form_type"`
	FiledAt     time.Time `json:"filed_at"`
	DocumentURL string    `json:"document_url"`
}

// DocumentChunk is one embedded text chunk of a filing document
type DocumentChunk struct {
	Ticker      string    `json:"ticker"`
	AccessionNo string    `json:"accession_no"`
	FormType    string    `json:"form_type"`
	Seq         int       `json:"seq"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"-"`
}

// IngestOutcome reports the processing result for one ticker
type IngestOutcome struct {
	Ticker  string `json:"ticker"`
	Filings int    `json:"filings"`
	Chunks  int    `json:"chunks"`
	Error   string `json:"error,omitempty"`
}

// ChatSource references a filing excerpt used to ground a chat answer
type ChatSource struct {
	AccessionNo string  `json:"accession_no"`
	FormType    string  `json:"form_type"`
	Excerpt     string  `json:"excerpt"`
	Similarity  float64 `json:"similarity"`
}
