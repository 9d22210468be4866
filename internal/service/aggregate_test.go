package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanScore(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   float64
	}{
		{"пустой список даёт ноль", nil, 0},
		{"одна оценка", []int{4}, 4},
		{"целое среднее", []int{3, 5}, 4},
		{"половина", []int{4, 5}, 4.5},
		{"округление до двух знаков вверх", []int{3, 4, 4}, 3.67},
		{"округление до двух знаков вниз", []int{1, 1, 2}, 1.33},
		{"периодическая дробь", []int{5, 5, 4, 4, 4, 4}, 4.33},
		{"минимальные оценки", []int{1, 1, 1}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MeanScore(tt.scores))
		})
	}
}
