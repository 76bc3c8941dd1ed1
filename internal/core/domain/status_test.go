package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChanges_Summary(t *testing.T) {
	tests := []struct {
		changes *Changes
		want    string
	}{
		{nil, "Nothing to change"},
		{&Changes{}, "Nothing to change"},
		{&Changes{Additions: 1}, "1 addition, no updates"},
		{&Changes{Updates: 1}, "No additions, 1 update"},
		{&Changes{Additions: 3, Updates: 2}, "3 additions, 2 updates"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.changes.Summary())
		})
	}
}

func TestProgress_Fraction(t *testing.T) {
	assert.Equal(t, -1.0, Progress{TotalBytes: 10, TotalBytesExpected: -1}.Fraction())
	assert.Equal(t, 0.5, Progress{TotalBytes: 5, TotalBytesExpected: 10}.Fraction())
	assert.Equal(t, 1.0, Progress{TotalBytes: 12, TotalBytesExpected: 10}.Fraction())
}
