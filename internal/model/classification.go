package model

import "github.com/mathieu-neron/zeitgeist/pkg/scores"

// Submission sources.
const (
	SourceYouTube = "youtube"
	SourceUpload  = "upload"
)

// ClassifyURLRequest is the API request body for classifying a YouTube video.
type ClassifyURLRequest struct {
	URL string `json:"url"`
}

// TableView is one rendered score table: its rows and the neutral/detected
// verdict the display shows for it.
type TableView struct {
	Verdict string       `json:"verdict" yaml:"verdict"`
	Rows    scores.Table `json:"rows" yaml:"rows"`
}

// ClassificationResponse is the API response for a classified video.
type ClassificationResponse struct {
	SubmissionID string      `json:"submissionId" yaml:"submissionId"`
	Source       string      `json:"source" yaml:"source"`
	VideoURL     string      `json:"videoUrl,omitempty" yaml:"videoUrl,omitempty"`
	Cached       bool        `json:"cached" yaml:"cached"`
	Visual       TableView   `json:"visual" yaml:"visual"`
	Audio        TableView   `json:"audio" yaml:"audio"`
	Frames       []TableView `json:"frames" yaml:"frames"`
}

// NewTableView wraps a table with its verdict. A nil table renders as [].
func NewTableView(t scores.Table) TableView {
	if t == nil {
		t = scores.Table{}
	}
	return TableView{Verdict: t.Verdict(), Rows: t}
}

// NewClassificationResponse builds the response for reshaped tables.
func NewClassificationResponse(submissionID, source, videoURL string, t *scores.Tables) *ClassificationResponse {
	frames := make([]TableView, 0, len(t.Frames))
	for _, f := range t.Frames {
		frames = append(frames, NewTableView(f))
	}
	return &ClassificationResponse{
		SubmissionID: submissionID,
		Source:       source,
		VideoURL:     videoURL,
		Visual:       NewTableView(t.Visual),
		Audio:        NewTableView(t.Audio),
		Frames:       frames,
	}
}

// DetectedCount returns how many categories were flagged across the visual
// and audio tables.
func (r *ClassificationResponse) DetectedCount() int {
	return len(r.Visual.Rows) + len(r.Audio.Rows)
}
