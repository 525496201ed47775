package main

// TabState tracks which tab of a tabbed collection is active. The index only
// moves when the user selects a tab or when the collection shrinks past it;
// a growing collection never disturbs the current selection.
type TabState struct {
	index int
	count int
}

// Index returns the active tab index
func (t *TabState) Index() int {
	return t.index
}

// Count returns the current number of tabs
func (t *TabState) Count() int {
	return t.count
}

// Select activates the tab at i. Out-of-range selections are ignored.
func (t *TabState) Select(i int) {
	if i < 0 || i >= t.count {
		return
	}
	t.index = i
}

// Resize records the new collection length. The active index is clamped to
// the last valid tab only when it has fallen off the end; it is never reset
// while the collection is still growing.
func (t *TabState) Resize(n int) {
	if n <= 0 {
		t.count = 0
		t.index = 0
		return
	}
	t.count = n
	if t.index > n-1 {
		t.index = n - 1
	}
}

// SessionView holds the presentation state of one council exchange: stage
// results as they arrive over the stream, the label mapping, and the active
// tab per stage. Owned by the UI event loop; not safe for concurrent use.
type SessionView struct {
	stage1   []Stage1Response
	stage2   []Stage2Ranking
	stage3   *Stage3Response
	metadata *Metadata

	stage1Tabs TabState
	stage2Tabs TabState
}

// SetStage1 replaces the stage 1 responses, resizing the stage 1 tabs
func (v *SessionView) SetStage1(responses []Stage1Response) {
	v.stage1 = responses
	v.stage1Tabs.Resize(len(responses))
}

// SetStage2 replaces the stage 2 rankings and turn metadata, resizing the
// stage 2 tabs
func (v *SessionView) SetStage2(rankings []Stage2Ranking, metadata *Metadata) {
	v.stage2 = rankings
	v.metadata = metadata
	v.stage2Tabs.Resize(len(rankings))
}

// SetStage3 records the chairman's synthesis
func (v *SessionView) SetStage3(response *Stage3Response) {
	v.stage3 = response
}

// Reset clears the view for a fresh exchange
func (v *SessionView) Reset() {
	v.stage1 = nil
	v.stage2 = nil
	v.stage3 = nil
	v.metadata = nil
	v.stage1Tabs.Resize(0)
	v.stage2Tabs.Resize(0)
}

// Stage1 returns the stage 1 responses
func (v *SessionView) Stage1() []Stage1Response {
	return v.stage1
}

// Stage2 returns the stage 2 rankings
func (v *SessionView) Stage2() []Stage2Ranking {
	return v.stage2
}

// Stage3 returns the chairman's synthesis, or nil before it arrives
func (v *SessionView) Stage3() *Stage3Response {
	return v.stage3
}

// Stage1Tabs returns the tab state for the stage 1 response tabs
func (v *SessionView) Stage1Tabs() *TabState {
	return &v.stage1Tabs
}

// Stage2Tabs returns the tab state for the stage 2 ranking tabs
func (v *SessionView) Stage2Tabs() *TabState {
	return &v.stage2Tabs
}

// LabelToModel returns the anonymized label mapping for the current turn,
// or nil before stage 2 metadata arrives
func (v *SessionView) LabelToModel() map[string]string {
	if v.metadata == nil {
		return nil
	}
	return v.metadata.LabelToModel
}

// RankingText returns the ranking text of the i-th evaluator with anonymized
// labels replaced by model display names. Before the label mapping arrives
// the raw text is returned unchanged.
func (v *SessionView) RankingText(i int) string {
	if i < 0 || i >= len(v.stage2) {
		return ""
	}
	return DeanonymizeText(v.stage2[i].Ranking, v.LabelToModel())
}

// AggregateRows returns the display rows for the aggregate ranking table
func (v *SessionView) AggregateRows() []AggregateRankingRow {
	if v.metadata == nil {
		return nil
	}
	return BuildAggregateRankingRows(v.metadata.AggregateRankings)
}
