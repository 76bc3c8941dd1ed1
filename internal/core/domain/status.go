package domain

import "fmt"

// Changes counts what an import applied to the contact store.
type Changes struct {
	Additions int
	Updates   int
}

// IsZero reports whether nothing was applied.
func (c *Changes) IsZero() bool {
	return c == nil || (c.Additions == 0 && c.Updates == 0)
}

// Summary renders the counts as a status line.
func (c *Changes) Summary() string {
	if c.IsZero() {
		return "Nothing to change"
	}
	var additions string
	switch c.Additions {
	case 0:
		additions = "No additions"
	case 1:
		additions = "1 addition"
	default:
		additions = fmt.Sprintf("%d additions", c.Additions)
	}
	var updates string
	switch c.Updates {
	case 0:
		updates = "no updates"
	case 1:
		updates = "1 update"
	default:
		updates = fmt.Sprintf("%d updates", c.Updates)
	}
	return additions + ", " + updates
}

// Progress reports download progress for one source.
// TotalBytesExpected is -1 when the server did not announce a length.
type Progress struct {
	// Bytes is the size of the latest chunk.
	Bytes int64
	// TotalBytes is the number of bytes read so far.
	TotalBytes int64
	// TotalBytesExpected is the announced length.
	TotalBytesExpected int64
}

// Fraction returns completion in [0, 1], or -1 when the length is unknown.
func (p Progress) Fraction() float64 {
	if p.TotalBytesExpected <= 0 {
		return -1
	}
	f := float64(p.TotalBytes) / float64(p.TotalBytesExpected)
	if f > 1 {
		return 1
	}
	return f
}
