package model

// Dataset is the raw source behind the metrics table, handed to the
// code-execution fallback as is.
type Dataset struct {
	Name     string // file name, e.g. "Combined_AllMetrics.csv"
	Content  []byte
	Checksum string // hex SHA-256 of Content
}
