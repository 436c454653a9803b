// Package semaphore classifies numeric design metrics into green, yellow and
// red bands and annotates tool violations with the result.
package semaphore

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// Metric names attached to violations.
const (
	MetricComplexity  = "complexity"
	MetricLinesOfCode = "lines_of_code"
	MetricLineLength  = "line_length"
)

// Thresholds defines the upper bounds of the green and yellow bands.
// A metric without a yellow band has Yellow == Green.
type Thresholds struct {
	Green  int
	Yellow int
}

// Defaults per metric.
var (
	ComplexityThresholds  = Thresholds{Green: 10, Yellow: 15}
	LinesOfCodeThresholds = Thresholds{Green: 212, Yellow: 300}
	LineLengthThresholds  = Thresholds{Green: 100, Yellow: 100}
)

// ThresholdsFor returns the thresholds for a metric name.
func ThresholdsFor(metric string) (Thresholds, bool) {
	switch metric {
	case MetricComplexity:
		return ComplexityThresholds, true
	case MetricLinesOfCode:
		return LinesOfCodeThresholds, true
	case MetricLineLength:
		return LineLengthThresholds, true
	default:
		return Thresholds{}, false
	}
}

// Classify places value into a band: green when value <= Green, yellow when
// value <= Yellow, red otherwise.
func (t Thresholds) Classify(value int) models.Classification {
	switch {
	case value <= t.Green:
		return models.ClassificationGreen
	case value <= t.Yellow:
		return models.ClassificationYellow
	default:
		return models.ClassificationRed
	}
}

// Rule renders the textual rule that produced a classification.
func (t Thresholds) Rule(c models.Classification) string {
	switch c {
	case models.ClassificationGreen:
		return fmt.Sprintf("<= %d", t.Green)
	case models.ClassificationYellow:
		return fmt.Sprintf("%d-%d", t.Green+1, t.Yellow)
	default:
		return fmt.Sprintf("> %d", t.Yellow)
	}
}

// Metrics builds a DesignMetrics block for a metric value.
func Metrics(metric string, value int) *models.DesignMetrics {
	t, ok := ThresholdsFor(metric)
	if !ok {
		return nil
	}
	c := t.Classify(value)
	return &models.DesignMetrics{
		Metric:         metric,
		Value:          value,
		Classification: c,
		Emoji:          c.Emoji(),
		Threshold:      t.Rule(c),
	}
}

// Extractor pulls a metric value out of a tool message for one rule.
type Extractor struct {
	Metric  string
	Pattern *regexp.Regexp
}

// Extract returns the first captured integer in msg.
func (e Extractor) Extract(msg string) (int, bool) {
	m := e.Pattern.FindStringSubmatch(msg)
	if len(m) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Rule tables keyed by tool rule id.
var (
	ESLintExtractors = map[string]Extractor{
		// "Function 'foo' has a complexity of 14. Maximum allowed is 10."
		"complexity": {MetricComplexity, regexp.MustCompile(`complexity of (\d+)`)},
		// "File has too many lines (250). Maximum allowed is 212."
		"max-lines": {MetricLinesOfCode, regexp.MustCompile(`too many lines \((\d+)\)`)},
		// "Function 'foo' has too many lines (80). Maximum allowed is 50."
		"max-lines-per-function": {MetricLinesOfCode, regexp.MustCompile(`too many lines \((\d+)\)`)},
		// "This line has a length of 120. Maximum allowed is 100."
		"max-len": {MetricLineLength, regexp.MustCompile(`length of (\d+)`)},
	}

	RuffExtractors = map[string]Extractor{
		// "`foo` is too complex (14 > 10)"
		"C901": {MetricComplexity, regexp.MustCompile(`too complex \((\d+) >`)},
		// "Line too long (120 > 100)"
		"E501": {MetricLineLength, regexp.MustCompile(`too long \((\d+) >`)},
	}
)

// Annotate attaches design metrics to violations whose rule has an
// extractor. Violations without a match are returned unchanged.
func Annotate(violations []models.Violation, extractors map[string]Extractor) []models.Violation {
	for i := range violations {
		ex, ok := extractors[violations[i].Rule]
		if !ok {
			continue
		}
		value, ok := ex.Extract(violations[i].Message)
		if !ok {
			continue
		}
		violations[i].DesignMetrics = Metrics(ex.Metric, value)
	}
	return violations
}
