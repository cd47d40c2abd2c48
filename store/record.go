package store

import (
	"time"

	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/mutation"
)

// MutationType tags how a step was derived from its predecessor.
type MutationType string

const (
	MutationGlobal   MutationType = "global"
	MutationRegional MutationType = "regional"
)

// CandidateRect is a crop rectangle attached to one candidate.
type CandidateRect struct {
	ImageID int `json:"image_id"`
	mutation.Rect
}

// SelectionRecord is one entry of user_log.json.
type SelectionRecord struct {
	// Step is the step whose population the user chose from.
	Step         int             `json:"step"`
	SelectedIDs  []int           `json:"selected_image_ids"`
	MutationType MutationType    `json:"mutation_type"`
	CropRects    []CandidateRect `json:"crop_rects,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// StepRecord is the commit marker of a step.
type StepRecord struct {
	Step           int          `json:"step"`
	Prompt         string       `json:"prompt"`
	PopulationSize int          `json:"population_size"`
	Shape          latent.Shape `json:"shape"`
	// MutationRate is the rate in effect after this step was produced.
	MutationRate   float64   `json:"mutation_rate"`
	ImageExt       string    `json:"image_ext"`
	LatentEncoding string    `json:"latent_encoding"`
	CreatedAt      time.Time `json:"created_at"`
	// Selection is the log record of the choice that produced this step.
	// It lets RecoverLog restore records lost between commit and append.
	Selection *SelectionRecord `json:"selection,omitempty"`
}
