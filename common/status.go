package common

//go:generate enumer -json -type Status -trimprefix Status

// Status of an item within a pipeline stage
type Status int

const (
	StatusNEW Status = iota
	StatusPENDING
	StatusDONE
	StatusFAILED
	StatusRETRY
)
