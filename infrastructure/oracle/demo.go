package oracle

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/react-agent/domain/agent"
	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
)

// Tools the demo oracle drives.
const (
	demoSearchTool = "search_action"
	demoAnswerTool = "answer_question"
)

// NewDemoOracle returns an offline oracle that searches for the query,
// answers from the results and finishes with the answer. It needs no
// provider and is used by the --scripted flag.
func NewDemoOracle() domainoracle.Oracle {
	return domainoracle.Func(func(_ context.Context, t domainoracle.Transcript) (agent.Decision, error) {
		last, hasLast := t.LastStep()

		switch {
		case len(t.Steps) == 0 && t.HasTool(demoSearchTool):
			return agent.NewInvokeToolDecision(demoSearchTool,
				map[string]any{"query": t.Query, "num_results": 5},
				"search the web for the question"), nil

		case hasLast && last.Action == demoSearchTool && last.Succeeded && t.HasTool(demoAnswerTool):
			return agent.NewInvokeToolDecision(demoAnswerTool,
				map[string]any{"question": t.Query, "search_results": last.Observation},
				"answer from the search results"), nil

		case hasLast && last.Succeeded:
			return agent.NewFinishDecision(last.Observation, "the last observation answers the question"), nil
		}

		if answer := lastSuccessfulObservation(t.Steps); answer != "" {
			return agent.NewFinishDecision(answer, "best available observation"), nil
		}
		return agent.NewFinishDecision("I could not find an answer to: "+t.Query, "no tool produced a result"), nil
	})
}

func lastSuccessfulObservation(steps []agent.Step) string {
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Succeeded && strings.TrimSpace(steps[i].Observation) != "" {
			return steps[i].Observation
		}
	}
	return ""
}
