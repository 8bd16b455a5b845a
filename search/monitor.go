package search

import "github.com/poiesic/tariff/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterEncode(dimensions int)
	AfterScoring(scored int)
	AfterThreshold(effective float32, kept int)
	AfterPruning(kept int)
	Finish(results []core.Candidate)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                   {}
func (n *noopMonitor) AfterEncode(_ int)                {}
func (n *noopMonitor) AfterScoring(_ int)               {}
func (n *noopMonitor) AfterThreshold(_ float32, _ int)  {}
func (n *noopMonitor) AfterPruning(_ int)               {}
func (n *noopMonitor) Finish(_ []core.Candidate)        {}
