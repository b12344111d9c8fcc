package interview

import "time"

// Report is the final artifact of an interview handed to the sink.
type Report struct {
	Session          Snapshot  `json:"session"`
	CandidateName    string    `json:"candidate_name,omitempty"`
	JobRole          string    `json:"job_role,omitempty"`
	DurationMinutes  int       `json:"interview_duration"`
	Transcript       []Entry   `json:"transcript"`
	CodingScore      int       `json:"coding_score"`
	CodingEvaluation any       `json:"coding_evaluation,omitempty"`
	Content          string    `json:"report,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
}
