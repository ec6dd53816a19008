package domain

// Memory is a question/answer pair persisted back into the vector store so
// future retrievals can reuse answered questions.
type Memory struct {
	ID           string
	Key          string
	Title        string // the question, capped
	Content      string // the answer
	Category     string // primary department
	Departments  []string
	SourceIDs    []string
	SourceTitles []string
	Confidence   float64
	Vector       []float32
}
