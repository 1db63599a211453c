package service

import (
	"sort"

	"github.com/connexus-ai/companion-rank/internal/model"
)

// ChannelKind identifies which retrieval channel produced a ranked
// list, so fusion can attribute per-channel ranks correctly even when
// one channel is absent.
type ChannelKind int

const (
	ChannelVector ChannelKind = iota
	ChannelLLM
)

// Channel is one ordered list of candidate product ids, rank 1 first.
// VectorSearch and the LLM candidate source each produce one Channel;
// adding a third is mechanical.
type Channel struct {
	Kind       ChannelKind
	ProductIDs []int64
	// Similarity, when non-nil, gives a per-id similarity score the
	// fuser carries through for downstream scoring (only the vector
	// channel populates this).
	Similarity map[int64]float64
}

// FuseRRF merges zero or more ranked channels into a single
// deduplicated, RRF-scored list using Reciprocal Rank Fusion:
//
//	rrf_raw(id) = sum over channels c containing id of 1/(k + rank_c(id))
//
// normalized by the maximum possible raw score (rank 1 in every
// channel). Ties are broken by first-appearance order across the
// channels, in the order the channels were passed in.
func FuseRRF(channels []Channel, k float64) []model.FusedCandidate {
	type accum struct {
		rrfRaw     float64
		vectorRank *int
		llmRank    *int
		similarity *float64
		firstSeen  int
	}

	order := make([]int64, 0)
	byID := make(map[int64]*accum)
	seq := 0

	for _, ch := range channels {
		for rank, id := range ch.ProductIDs {
			rank1 := rank + 1
			a, ok := byID[id]
			if !ok {
				a = &accum{firstSeen: seq}
				seq++
				byID[id] = a
				order = append(order, id)
			}
			a.rrfRaw += 1.0 / (k + float64(rank1))

			r := rank1
			switch ch.Kind {
			case ChannelVector:
				a.vectorRank = &r
			case ChannelLLM:
				a.llmRank = &r
			}

			if ch.Similarity != nil {
				if sim, ok := ch.Similarity[id]; ok {
					s := sim
					a.similarity = &s
				}
			}
		}
	}

	if len(channels) == 0 {
		return nil
	}

	maxPossible := 0.0
	for range channels {
		maxPossible += 1.0 / (k + 1.0)
	}
	if maxPossible == 0 {
		maxPossible = 1
	}

	out := make([]model.FusedCandidate, 0, len(order))
	for _, id := range order {
		a := byID[id]
		out = append(out, model.FusedCandidate{
			ProductID:  id,
			RRFScore:   a.rrfRaw / maxPossible,
			VectorRank: a.vectorRank,
			LLMRank:    a.llmRank,
			Similarity: a.similarity,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		return byID[out[i].ProductID].firstSeen < byID[out[j].ProductID].firstSeen
	})

	return out
}
