package analysis

import "fmt"

// Default tuning constants.
const (
	// DefaultThreshold is the best-match cosine similarity below which a chunk is off-topic.
	DefaultThreshold = 0.72
	// DefaultWindowSeconds bounds the duration of a timed chunk.
	DefaultWindowSeconds = 30.0
	// DefaultBatchSize is the number of untimed segments grouped into one chunk.
	DefaultBatchSize = 4
	// DefaultBalanceScore is the fixed speaker-balance term of the score. It
	// stands in until speaker diarization is available.
	DefaultBalanceScore = 10.0
	// DefaultSnippetRunes limits tangent snippets.
	DefaultSnippetRunes = 160
)

// Score weights.
const (
	focusWeight     = 40.0
	adherenceWeight = 30.0
	actionWeight    = 15.0

	// actionBlockMinutes is the meeting length per expected action item.
	actionBlockMinutes = 15.0
	// untimedActionUnits converts an untimed action count into a density.
	untimedActionUnits = 5.0
	// minPlannedMinutes guards coverage against zero planned time.
	minPlannedMinutes = 1e-6
)

// Config carries the tunable analysis constants.
type Config struct {
	Threshold     float64 `yaml:"threshold"`
	WindowSeconds float64 `yaml:"window_seconds"`
	BatchSize     int     `yaml:"batch_size"`
	BalanceScore  float64 `yaml:"balance_score"`
	SnippetRunes  int     `yaml:"snippet_runes"`
}

// DefaultConfig returns the standard constants.
func DefaultConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		WindowSeconds: DefaultWindowSeconds,
		BatchSize:     DefaultBatchSize,
		BalanceScore:  DefaultBalanceScore,
		SnippetRunes:  DefaultSnippetRunes,
	}
}

// WithDefaults returns DefaultConfig for a zero Config and otherwise fills
// zero fields other than BalanceScore, for which zero is a valid override.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c == (Config{}) {
		return d
	}
	if c.Threshold == 0 {
		c.Threshold = d.Threshold
	}
	if c.WindowSeconds == 0 {
		c.WindowSeconds = d.WindowSeconds
	}
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.SnippetRunes == 0 {
		c.SnippetRunes = d.SnippetRunes
	}
	return c
}

// Validate checks that the constants are usable.
func (c Config) Validate() error {
	if c.Threshold < -1 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [-1, 1], got %v", c.Threshold)
	}
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive, got %v", c.WindowSeconds)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.BalanceScore < 0 || c.BalanceScore > 100 {
		return fmt.Errorf("balance_score must be within [0, 100], got %v", c.BalanceScore)
	}
	if c.SnippetRunes < 0 {
		return fmt.Errorf("snippet_runes must not be negative, got %d", c.SnippetRunes)
	}
	return nil
}
