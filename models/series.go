package models

import (
	"errors"
	"fmt"
	"time"
)

// HitOutcome is the recorded result of a single shot. Ensure is distinct
// from a plain hit: it marks a confirmation shot that matters for tie-break
// adjudication, but it counts toward hit totals all the same.
type HitOutcome int

const (
	OutcomeMiss   HitOutcome = 0
	OutcomeHit    HitOutcome = 1
	OutcomeEnsure HitOutcome = 2
)

// ErrInvalidEncoding is returned when a raw arrows string holds a byte that
// does not map to a HitOutcome.
var ErrInvalidEncoding = errors.New("invalid arrow encoding")

func (o HitOutcome) Valid() bool {
	return o == OutcomeMiss || o == OutcomeHit || o == OutcomeEnsure
}

// IsHit reports whether the outcome counts toward hit totals.
func (o HitOutcome) IsHit() bool {
	return o == OutcomeHit || o == OutcomeEnsure
}

// EncodeArrows renders outcomes in the compact persisted form: one digit per
// arrow, shot order preserved.
func EncodeArrows(arrows []HitOutcome) string {
	buf := make([]byte, len(arrows))
	for i, a := range arrows {
		buf[i] = byte('0' + a)
	}
	return string(buf)
}

// ParseArrows is the lossless inverse of EncodeArrows.
func ParseArrows(raw string) ([]HitOutcome, error) {
	arrows := make([]HitOutcome, len(raw))
	for i := 0; i < len(raw); i++ {
		o := HitOutcome(raw[i] - '0')
		if !o.Valid() {
			return nil, fmt.Errorf("%w: unknown symbol %q at position %d", ErrInvalidEncoding, raw[i], i)
		}
		arrows[i] = o
	}
	return arrows, nil
}

// Series is the ordered shot history of one archer within one match. It is
// owned by its match: append-only while the match runs, frozen once the
// match is finished.
type Series struct {
	ID        int       `json:"id" db:"id"`
	MatchID   int       `json:"match_id" db:"match_id"`
	ArcherID  int       `json:"archer_id" db:"archer_id"`
	ArrowsRaw string    `json:"arrows_raw" db:"arrows_raw"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Archer *Archer `json:"archer,omitempty" db:"-"`
}

// Arrows decodes the persisted outcome list.
func (s *Series) Arrows() ([]HitOutcome, error) {
	return ParseArrows(s.ArrowsRaw)
}

// Len is the number of arrows recorded so far.
func (s *Series) Len() int {
	return len(s.ArrowsRaw)
}

// HitCount counts outcomes in {hit, ensure}.
func (s *Series) HitCount() int {
	n := 0
	for i := 0; i < len(s.ArrowsRaw); i++ {
		if HitOutcome(s.ArrowsRaw[i] - '0').IsHit() {
			n++
		}
	}
	return n
}
