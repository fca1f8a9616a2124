package common

// ItemError records the failure of one item during a batch operation
type ItemError struct {
	Item Item
	Err  error
}

// DownloadResult partitions the input items of a download batch.
// Every input item appears in exactly one of the two slices:
// len(Succeeded) + len(Failed) == len(input).
type DownloadResult struct {
	Succeeded []Item
	Failed    []ItemError
}

// Complete returns true if the result covers n input items
func (r DownloadResult) Complete(n int) bool {
	return len(r.Succeeded)+len(r.Failed) == n
}

// ConversionResult partitions the input items of a conversion batch.
// Written holds one output path per successfully converted item.
type ConversionResult struct {
	Written []string
	Failed  []ItemError
}

// Complete returns true if the result covers n input items
func (r ConversionResult) Complete(n int) bool {
	return len(r.Written)+len(r.Failed) == n
}
