package database

// Checkpoint is the record of the most recent run. Reloading it restores
// the display without recomputation.
type Checkpoint struct {
	RunID            string
	Source           string
	Text             string
	IntermediateText string
	FinalText        string
	Classification   *string // nil when the service returned nothing
	FeatureOrder     string
	SentimentScore   float64
	SentimentLabel   string
	CreatedAt        string
}

// Run is one entry of the run history.
type Run struct {
	ID             int64
	RunID          string
	Source         string
	Text           string
	FinalText      string
	Classification *string
	SentimentScore float64
	SentimentLabel string
	CreatedAt      string
}

// Stats holds aggregate database statistics.
type Stats struct {
	HasCheckpoint  bool
	TotalRuns      int
	ClassifiedRuns int
	PositiveRuns   int
	NegativeRuns   int
	LastRunAt      string
}
