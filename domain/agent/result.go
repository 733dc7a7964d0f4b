package agent

import (
	"encoding/json"
	"time"
)

// Result is the outward surface of a completed task.
type Result struct {
	RunID          string        `json:"run_id"`
	Query          string        `json:"query"`
	Status         Status        `json:"status"`
	FinalAnswer    string        `json:"final_answer,omitempty"`
	Error          string        `json:"error,omitempty"`
	History        []Step        `json:"history"`
	IterationCount int           `json:"iteration_count"`
	ElapsedTime    time.Duration `json:"-"`
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        time.Time     `json:"ended_at,omitempty"`
}

// Result builds the result surface from the state.
func (s *State) Result(runID string) Result {
	return Result{
		RunID:          runID,
		Query:          s.query,
		Status:         s.status,
		FinalAnswer:    s.finalAnswer,
		Error:          s.failureReason,
		History:        cloneSteps(s.history),
		IterationCount: s.iteration,
		ElapsedTime:    s.Elapsed(),
		StartedAt:      s.startedAt,
		EndedAt:        s.endedAt,
	}
}

// Clone returns a copy sharing no history or argument storage with r.
func (r Result) Clone() Result {
	r.History = cloneSteps(r.History)
	return r
}

// Succeeded returns true if the task finished with an answer.
func (r Result) Succeeded() bool {
	return r.Status == StatusFinished
}

// Summary aggregates step outcomes.
type Summary struct {
	Steps      int      `json:"steps"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	ToolsUsed  []string `json:"tools_used"`
}

// Summary counts successful and failed steps and the distinct tools invoked.
func (r Result) Summary() Summary {
	sum := Summary{Steps: len(r.History), ToolsUsed: []string{}}
	seen := make(map[string]bool)
	for _, st := range r.History {
		if st.Succeeded {
			sum.Successful++
		} else {
			sum.Failed++
		}
		if st.IsFinish() || seen[st.Action] {
			continue
		}
		seen[st.Action] = true
		sum.ToolsUsed = append(sum.ToolsUsed, st.Action)
	}
	return sum
}

// MarshalJSON encodes the elapsed time in milliseconds.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		ElapsedMS int64 `json:"elapsed_time_ms"`
	}{plain(r), r.ElapsedTime.Milliseconds()})
}

// UnmarshalJSON restores the elapsed time from milliseconds.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var aux struct {
		plain
		ElapsedMS int64 `json:"elapsed_time_ms"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Result(aux.plain)
	r.ElapsedTime = time.Duration(aux.ElapsedMS) * time.Millisecond
	return nil
}
