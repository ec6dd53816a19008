package domain

// ExpandedQuery is a question enriched with domain synonyms and department
// classification. Immutable once computed.
type ExpandedQuery struct {
	Text             string
	Departments      []string // ordered by classification score, may be empty
	DomainConfidence float64  // [0,1], max over detected departments
}

// RetrievalParams are the per-question recall/precision knobs.
type RetrievalParams struct {
	TopK     int
	MinScore float64
}

// Clarification is the gate decision: when Needed, Message replaces the answer.
type Clarification struct {
	Needed  bool
	Message string
}

// RankedResult is the outcome of one retrieval call: the final document set,
// its confidence, and an optional clarification that short-circuits answering.
// Owned by the request that created it; never mutated after construction.
type RankedResult struct {
	Documents     []Document
	Confidence    Confidence
	Clarification Clarification
	Query         ExpandedQuery
	Params        RetrievalParams
}
