package model

import "time"

// RunStatus represents the current state of a shortlist run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Priority classifies how important a requirement is to the buyer.
type Priority string

const (
	PriorityMustHave   Priority = "must-have"
	PriorityNiceToHave Priority = "nice-to-have"
	PriorityOptional   Priority = "optional"
)

// Requirement is one buyer requirement the shortlist is scored against.
type Requirement struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Weight      int      `json:"weight"` // 1-10, 0 treated as 5
}

// SearchResult is one hit returned by a web search provider.
type SearchResult struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance,omitempty"`
}

// PricingGuess is heuristic pricing information lifted from page text.
type PricingGuess struct {
	Model    string `json:"model"`
	Range    string `json:"range"`
	Currency string `json:"currency"`
}

// ScrapedPage holds the extracted text of one vendor page.
type ScrapedPage struct {
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Pricing   *PricingGuess `json:"pricing,omitempty"`
	Features  []string      `json:"features"`
	ScrapedAt time.Time     `json:"scrapedAt"`
}

// MatchedRequirement records whether a vendor meets one requirement.
type MatchedRequirement struct {
	Requirement string `json:"requirement"`
	Met         bool   `json:"met"`
	Evidence    string `json:"evidence,omitempty"`
}

// EvidenceLink cites a source passage backing the analysis.
type EvidenceLink struct {
	URL       string `json:"url"`
	Snippet   string `json:"snippet"`
	Relevance string `json:"relevance,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// VendorRecord is one analyzed vendor in a completed shortlist.
type VendorRecord struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Website             string               `json:"website"`
	Description         string               `json:"description"`
	PriceRange          string               `json:"priceRange"`
	PricingModel        string               `json:"pricingModel"`
	Currency            string               `json:"currency"`
	OverallScore        float64              `json:"overallScore"`
	RequirementMatch    float64              `json:"requirementMatch"`
	MatchedRequirements []MatchedRequirement `json:"matchedRequirements"`
	KeyFeatures         []string             `json:"keyFeatures"`
	EvidenceLinks       []EvidenceLink       `json:"evidenceLinks"`
	Risks               []string             `json:"risks"`
}

// ShortlistRun is one full search-scrape-analyze run and its outcome.
type ShortlistRun struct {
	ID           string         `json:"id"`
	Need         string         `json:"need"`
	Requirements []Requirement  `json:"requirements"`
	Status       RunStatus      `json:"status"`
	Vendors      []VendorRecord `json:"vendors,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	ProcessingMs int64          `json:"processingTimeMs"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// ClampScore forces a score into the 0-100 range.
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
