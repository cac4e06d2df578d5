package pipeline

type state string

const (
	stateStart              state = "start"
	stateDirectAttempted    state = "direct_attempted"
	stateRasterizationCheck state = "rasterization_check"
	statePageLoop           state = "page_loop"
	stateAggregating        state = "aggregating"
	stateAnalyzing          state = "analyzing"
	stateDone               state = "done"
	stateFailed             state = "failed"
)

func (p *Pipeline) enterState(runID string, s state) {
	p.logger.Debug("pipeline state", "run_id", runID, "state", string(s))
}
