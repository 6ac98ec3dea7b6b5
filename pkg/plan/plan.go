package plan

import (
	"errors"
	"fmt"
	"slices"
)

// Flag is a coarse capability toggle attached to a tier. Flags describe what a
// tier includes for marketing and UI purposes; fine-grained gating lives in the
// feature catalog.
type Flag string

const (
	FlagVoiceCalls       Flag = "voice_calls"
	FlagVideoCalls       Flag = "video_calls"
	FlagGroupDiscussions Flag = "group_discussions"
	FlagOfflineLessons   Flag = "offline_lessons"
	FlagUnlimitedGames   Flag = "unlimited_games"
)

// FreeRank is the rank every user falls back to when they hold no plan or
// their plan has expired.
const FreeRank = 0

// Tier is one subscription level. Ranks form a total order: a higher rank is a
// strict superset of entitlements.
type Tier struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Rank  int    `yaml:"rank"`
	Flags []Flag `yaml:"flags"`
}

// HasFlag reports whether the tier carries the given capability flag.
func (t Tier) HasFlag(f Flag) bool {
	return slices.Contains(t.Flags, f)
}

// Hierarchy is the ordered set of subscription tiers. It is immutable after
// construction, which is what makes concurrent reads safe without locking.
type Hierarchy struct {
	tiers  []Tier // sorted by rank ascending
	byID   map[string]Tier
	byRank map[int]Tier
}

// NewHierarchy builds and validates a hierarchy from the given tiers.
// Ranks and IDs must be unique, and a rank-0 (free) tier must exist so that
// expired users always resolve to a real tier.
func NewHierarchy(tiers []Tier) (*Hierarchy, error) {
	if len(tiers) == 0 {
		return nil, errors.Join(ErrInvalidHierarchy, errors.New("no tiers defined"))
	}

	h := &Hierarchy{
		tiers:  make([]Tier, len(tiers)),
		byID:   make(map[string]Tier, len(tiers)),
		byRank: make(map[int]Tier, len(tiers)),
	}
	copy(h.tiers, tiers)
	slices.SortFunc(h.tiers, func(a, b Tier) int { return a.Rank - b.Rank })

	for _, t := range h.tiers {
		if t.ID == "" {
			return nil, errors.Join(ErrInvalidHierarchy, errors.New("tier ID cannot be empty"))
		}
		if t.Rank < FreeRank {
			return nil, errors.Join(ErrInvalidHierarchy,
				fmt.Errorf("tier %s has negative rank %d", t.ID, t.Rank))
		}
		if _, dup := h.byID[t.ID]; dup {
			return nil, errors.Join(ErrInvalidHierarchy,
				fmt.Errorf("duplicate tier ID %s", t.ID))
		}
		if _, dup := h.byRank[t.Rank]; dup {
			return nil, errors.Join(ErrInvalidHierarchy,
				fmt.Errorf("duplicate tier rank %d", t.Rank))
		}
		h.byID[t.ID] = t
		h.byRank[t.Rank] = t
	}

	if _, ok := h.byRank[FreeRank]; !ok {
		return nil, errors.Join(ErrInvalidHierarchy, errors.New("no free (rank 0) tier defined"))
	}

	return h, nil
}

// ByID looks up a tier by its identifier.
func (h *Hierarchy) ByID(id string) (Tier, bool) {
	t, ok := h.byID[id]
	return t, ok
}

// RankOf resolves a plan ID to its rank. Unknown plans resolve to FreeRank so
// a stale or deleted plan ID degrades to free access rather than failing.
func (h *Hierarchy) RankOf(planID string) int {
	if t, ok := h.byID[planID]; ok {
		return t.Rank
	}
	return FreeRank
}

// Free returns the rank-0 tier.
func (h *Hierarchy) Free() Tier {
	return h.byRank[FreeRank]
}

// Tiers returns the tiers ordered by ascending rank.
func (h *Hierarchy) Tiers() []Tier {
	return slices.Clone(h.tiers)
}
