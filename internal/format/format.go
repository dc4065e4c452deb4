// Package format holds the shared presentation helpers used by build reports.
// All arithmetic is integer-based truncation so report values are stable
// across platforms and never subject to float rounding.
package format

import "fmt"

// Duration renders a millisecond count as "Xh Ym Z.ZZs", dropping leading
// zero units. Values are truncated, not rounded.
func Duration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	centis := ms / 10
	seconds := centis / 100
	centis %= 100
	minutes := seconds / 60
	seconds %= 60
	hours := minutes / 60
	minutes %= 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %d.%02ds", hours, minutes, seconds, centis)
	case minutes > 0:
		return fmt.Sprintf("%dm %d.%02ds", minutes, seconds, centis)
	default:
		return fmt.Sprintf("%d.%02ds", seconds, centis)
	}
}

// Size renders a byte count using 1024-based units with two truncated
// decimals. Anything below 1 KB stays a plain byte count, including zero.
func Size(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	const (
		kb = 1 << 10
		mb = 1 << 20
	)
	switch {
	case bytes >= mb:
		hundredths := bytes * 100 / mb
		return fmt.Sprintf("%d.%02d MB", hundredths/100, hundredths%100)
	case bytes >= kb:
		hundredths := bytes * 100 / kb
		return fmt.Sprintf("%d.%02d KB", hundredths/100, hundredths%100)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
