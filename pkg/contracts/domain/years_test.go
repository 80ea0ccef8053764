package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewYearSet(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    YearSet
		wantErr bool
	}{
		{"sorted and compacted", []string{"2023", "2021", "2023", "2022"}, YearSet{"2021", "2022", "2023"}, false},
		{"empty", nil, YearSet{}, false},
		{"three digits", []string{"202"}, nil, true},
		{"not numeric", []string{"20x2"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewYearSet(tt.in...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYearSet_Accessors(t *testing.T) {
	ys := YearSet{"2020", "2021", "2022", "2023"}

	assert.True(t, ys.Contains("2021"))
	assert.False(t, ys.Contains("2019"))
	assert.Equal(t, "2020", ys.First())
	assert.Equal(t, "2023", ys.Last())
	assert.Equal(t, "2022", ys.Penultimate())
	assert.Equal(t, YearSet{"2022", "2023"}, ys.Since("2022"))
	assert.Empty(t, ys.Since("2024"))
	assert.Equal(t, [][2]string{{"2020", "2021"}, {"2021", "2022"}, {"2022", "2023"}}, ys.Pairs())

	single := YearSet{"2023"}
	assert.Equal(t, "", single.Penultimate())
	assert.Nil(t, single.Pairs())
	assert.Equal(t, "", YearSet{}.First())
}
