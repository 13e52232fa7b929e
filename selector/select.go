package selector

import (
	"context"
	"log/slog"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

var (
	// ErrNoAccelerator is returned when there are no candidates at all
	ErrNoAccelerator = errors.New("no accelerator found")
	// ErrNoSuitableAccelerator is returned when every candidate failed a REQUIRED check
	ErrNoSuitableAccelerator = errors.New("no suitable accelerator found")
)

const (
	CheckDeviceType    = "deviceType"
	CheckExtensions    = "extensions"
	CheckGraphicsQueue = "graphicsQueue"
	CheckPresentQueue  = "presentQueue"
)

// CandidateScore is the outcome of evaluating the criteria against one candidate
type CandidateScore struct {
	Index    int
	Name     string
	Score    int
	Eligible bool
	// FailedCheck names the REQUIRED check that eliminated the candidate, if any
	FailedCheck    string
	GraphicsFamily int
	PresentFamily  int
}

// Selection is the chosen candidate and its resolved queue families. GraphicsFamily and
// PresentFamily are -1 when the corresponding queue was not requested or not found.
type Selection struct {
	Candidate      *Candidate
	Index          int
	Score          int
	GraphicsFamily int
	PresentFamily  int

	Report []CandidateScore
}

// Select evaluates criteria against every candidate and returns the highest-scoring candidate
// that passes every REQUIRED check. Candidates with equal scores are ranked by their order in
// candidates.
func Select(logger *slog.Logger, candidates []*Candidate, criteria Criteria) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, ErrNoAccelerator
	}

	requested := requestedExtensions(criteria.Extensions)
	extraWeight := criteria.extraWeight()

	report := make([]CandidateScore, 0, len(candidates))
	var eligible []CandidateScore

	for index, candidate := range candidates {
		score := evaluate(candidate, criteria, requested, extraWeight)
		score.Index = index
		report = append(report, score)

		logger.LogAttrs(context.Background(), slog.LevelDebug, "selector::Select evaluated candidate",
			slog.Int("index", index),
			slog.String("name", candidate.Name),
			slog.String("type", DeviceTypeName(candidate.Type)),
			slog.Int("score", score.Score),
			slog.Bool("eligible", score.Eligible),
			slog.String("failedCheck", score.FailedCheck),
		)

		if score.Eligible {
			eligible = append(eligible, score)
		}
	}

	if len(eligible) == 0 {
		return nil, errors.Wrapf(ErrNoSuitableAccelerator, "all %d candidates failed a required check", len(candidates))
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Score > eligible[j].Score
	})

	best := eligible[0]
	chosen := candidates[best.Index]
	selection := &Selection{
		Candidate:      chosen,
		Index:          best.Index,
		Score:          best.Score,
		GraphicsFamily: -1,
		PresentFamily:  -1,
		Report:         report,
	}

	if criteria.GraphicsQueue != nil {
		selection.GraphicsFamily, _ = findGraphicsFamily(chosen, criteria.GraphicsQueue.Flags|core1_0.QueueGraphics)
	}
	if criteria.PresentQueue != nil {
		selection.PresentFamily = findPresentFamily(chosen)
	}

	logger.Info("selected accelerator",
		slog.String("name", chosen.Name),
		slog.String("type", DeviceTypeName(chosen.Type)),
		slog.Int("score", selection.Score),
		slog.Int("graphicsFamily", selection.GraphicsFamily),
		slog.Int("presentFamily", selection.PresentFamily),
	)

	return selection, nil
}

func evaluate(candidate *Candidate, criteria Criteria, requested *extensionSet, extraWeight int) CandidateScore {
	score := CandidateScore{
		Name:           candidate.Name,
		Eligible:       true,
		GraphicsFamily: -1,
		PresentFamily:  -1,
	}

	typeResult, typeOption := checkDeviceType(candidate, criteria.DeviceType, extraWeight)
	if !score.apply(CheckDeviceType, typeResult, typeOption) {
		return score
	}

	if !score.apply(CheckExtensions, checkExtensions(candidate, requested, criteria.ExtensionsOption, extraWeight), criteria.ExtensionsOption) {
		return score
	}

	if criteria.GraphicsQueue != nil {
		result := checkGraphicsQueue(candidate, criteria.GraphicsQueue, extraWeight)
		score.GraphicsFamily = result.family
		if !score.apply(CheckGraphicsQueue, result, criteria.GraphicsQueue.Option) {
			return score
		}
	}

	if criteria.PresentQueue != nil {
		result := checkPresentQueue(candidate, criteria.PresentQueue, extraWeight)
		score.PresentFamily = result.family
		if !score.apply(CheckPresentQueue, result, criteria.PresentQueue.Option) {
			return score
		}
	}

	return score
}

// apply adds a check's score and reports whether evaluation should continue
func (s *CandidateScore) apply(name string, result checkResult, option SelectOption) bool {
	s.Score += result.score
	if !result.pass && option == OptionRequired {
		s.Eligible = false
		s.FailedCheck = name
		return false
	}

	return true
}
