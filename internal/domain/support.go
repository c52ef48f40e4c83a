package domain

// SupportResult is the state after a support toggle.
type SupportResult struct {
	Supported    bool
	SupportCount int
}
