// Package progress reads the status text that dd writes to stderr.
//
// A progress line starts with a byte count followed by the word "bytes" and,
// somewhere after it, "copied" (GNU) or "transferred" (BSD). Anything else is
// not a progress line and is skipped. Recognized shapes:
//
//	1048576000 bytes (1.0 GB, 1000 MiB) copied, 5.00123 s, 210 MB/s
//	1048576000 bytes (1049 MB, 1000 MiB) transferred 5.001s, 210 MB/s
//	1048576000 bytes transferred in 5.001 secs (209672000 bytes/sec)
package progress

import (
	"regexp"
	"strconv"
	"strings"

	"isoflash/internal/domain"
)

var (
	markerPattern  = regexp.MustCompile(`\bbytes\b.*\b(copied|transferred)\b`)
	ratePattern    = regexp.MustCompile(`([0-9]+(?:[.,][0-9]+)?)\s*([kKMGT]?i?B)/s\s*$`)
	bsdRatePattern = regexp.MustCompile(`\(([0-9]+)\s+bytes/sec\)`)
)

var unitScale = map[string]float64{
	"B":   1,
	"kB":  1e3,
	"KB":  1e3,
	"MB":  1e6,
	"GB":  1e9,
	"TB":  1e12,
	"KiB": 1 << 10,
	"kiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
}

// Parse extracts a sample from one dd status line. ok is false when the line
// does not carry progress data.
func Parse(line string) (sample domain.Sample, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || !markerPattern.MatchString(line) {
		return domain.Sample{}, false
	}

	sample.Line = line
	head := line
	if i := strings.IndexByte(head, ','); i >= 0 {
		head = head[:i]
	}
	fields := strings.Fields(head)
	if len(fields) < 2 || fields[1] != "bytes" {
		return domain.Sample{}, false
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || n < 0 {
		return domain.Sample{}, false
	}
	sample.Bytes = n
	sample.HasBytes = true

	if rate, found := parseRate(line); found {
		sample.RateMBs = rate
		sample.HasRate = true
	}
	return sample, true
}

func parseRate(line string) (float64, bool) {
	if m := ratePattern.FindStringSubmatch(line); m != nil {
		scale, known := unitScale[m[2]]
		if !known {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
		return v * scale / 1e6, true
	}
	if m := bsdRatePattern.FindStringSubmatch(line); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return v / 1e6, true
	}
	return 0, false
}
