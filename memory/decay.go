package memory

import (
	"fmt"
	"math"
	"time"
)

// Decay computes a retention score in [0, 1] for a persistent entry: 1.0
// means just reinforced, 0.0 means fully forgotten. The garbage collector
// prunes entries whose retention falls below its threshold.
type Decay interface {
	ComputeRetention(entry MemoryEntry) float64
}

// EbbinghausDecay models the Ebbinghaus forgetting curve R = e^(-t/S),
// where t is hours since the entry was last accessed and memory strength
// grows with each access: S = baseStrength + accessCount*reinforcement.
type EbbinghausDecay struct {
	baseStrength  float64
	reinforcement float64
	now           func() time.Time
}

// NewEbbinghausDecay creates an Ebbinghaus decay curve. baseStrength must
// be positive and reinforcement non-negative; 1.0 and 0.5 are the
// conventional defaults.
func NewEbbinghausDecay(baseStrength, reinforcement float64) (*EbbinghausDecay, error) {
	if baseStrength <= 0 {
		return nil, fmt.Errorf("base strength must be positive, got %v", baseStrength)
	}
	if reinforcement < 0 {
		return nil, fmt.Errorf("reinforcement factor must be non-negative, got %v", reinforcement)
	}
	return &EbbinghausDecay{
		baseStrength:  baseStrength,
		reinforcement: reinforcement,
		now:           time.Now,
	}, nil
}

// ComputeRetention returns e^(-t/S), clamped to [0, 1]. It is strictly
// decreasing in elapsed time and strictly increasing in access count.
func (d *EbbinghausDecay) ComputeRetention(entry MemoryEntry) float64 {
	elapsed := d.now().UTC().Sub(entry.LastAccessed).Hours()
	strength := d.baseStrength + float64(entry.AccessCount)*d.reinforcement
	retention := math.Exp(-elapsed / strength)
	return clamp01(retention)
}

// LinearDecay interpolates retention linearly from 1.0 at t=0 down to 0.0
// at twice the half-life. At exactly the half-life retention is 0.5.
type LinearDecay struct {
	halfLife time.Duration
	now      func() time.Time
}

// NewLinearDecay creates a linear decay curve. halfLife must be positive;
// one week (168h) is the conventional default.
func NewLinearDecay(halfLife time.Duration) (*LinearDecay, error) {
	if halfLife <= 0 {
		return nil, fmt.Errorf("half life must be positive, got %v", halfLife)
	}
	return &LinearDecay{halfLife: halfLife, now: time.Now}, nil
}

// ComputeRetention returns 1 - t/(2*halfLife), clamped to [0, 1].
func (d *LinearDecay) ComputeRetention(entry MemoryEntry) float64 {
	elapsed := d.now().UTC().Sub(entry.LastAccessed)
	retention := 1.0 - elapsed.Hours()/(2.0*d.halfLife.Hours())
	return clamp01(retention)
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
