package semaphore

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/ShayCichocki/qacoord/pkg/models"
)

// CountPythonLOC counts source lines in Python code, excluding blank lines,
// single-line comments, docstrings and the continuation lines of
// multi-line strings.
func CountPythonLOC(src []byte) int {
	count := 0
	var open string // triple-quote delimiter still open at line end

	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if open != "" {
			open = scanStrings(line, open)
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := openingTripleQuote(line); !ok {
			count++
		}
		open = scanStrings(line, "")
	}
	return count
}

// scanStrings walks one line starting inside the string delimited by open
// ("" for code) and returns the triple-quote delimiter left open at the end
// of the line. Quotes inside comments and single-line strings are ignored.
func scanStrings(line, open string) string {
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case open != "":
			switch {
			case c == '\\':
				i += 2
			case strings.HasPrefix(line[i:], open):
				i += len(open)
				open = ""
			default:
				i++
			}
		case c == '#':
			return ""
		case c == '"' || c == '\'':
			if triple := strings.Repeat(string(c), 3); strings.HasPrefix(line[i:], triple) {
				open = triple
				i += 3
				continue
			}
			i++
			for i < len(line) && line[i] != c {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			i++
		default:
			i++
		}
	}
	return open
}

// openingTripleQuote reports whether line starts with a (possibly prefixed)
// triple-quoted string literal.
func openingTripleQuote(line string) (string, bool) {
	body := line[prefixLen(line):]
	switch {
	case strings.HasPrefix(body, `"""`):
		return `"""`, true
	case strings.HasPrefix(body, `'''`):
		return `'''`, true
	default:
		return "", false
	}
}

// prefixLen returns the length of a string prefix such as r, b, f, rb.
func prefixLen(line string) int {
	n := 0
	for n < len(line) && n < 2 && strings.ContainsRune("rRbBuUfF", rune(line[n])) {
		n++
	}
	if n < len(line) && (line[n] == '"' || line[n] == '\'') {
		return n
	}
	return 0
}

// LOCViolation synthesizes a max-lines violation when loc leaves the green
// band: yellow is a warning, red is an error.
func LOCViolation(file string, loc int) (models.Violation, bool) {
	m := Metrics(MetricLinesOfCode, loc)
	if m.Classification == models.ClassificationGreen {
		return models.Violation{}, false
	}
	sev := models.SeverityWarning
	if m.Classification == models.ClassificationRed {
		sev = models.SeverityError
	}
	return models.Violation{
		File:          file,
		Line:          1,
		Column:        1,
		Severity:      sev,
		Message:       fmt.Sprintf("File has too many lines of code (%d). Recommended maximum is %d.", loc, LinesOfCodeThresholds.Green),
		Rule:          "max-lines",
		DesignMetrics: m,
	}, true
}
