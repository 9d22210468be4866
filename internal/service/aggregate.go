package service

import "math"

// MeanScore считает средний балл по всем оценкам с округлением до сотых.
// Полный проход по выборке намеренный: простота и корректность важнее,
// инкрементальный агрегат можно подставить вместо этой функции,
// не трогая вызывающий код.
func MeanScore(scores []int) float64 {
	if len(scores) == 0 {
		return 0
	}

	sum := 0
	for _, s := range scores {
		sum += s
	}

	mean := float64(sum) / float64(len(scores))
	return math.Round(mean*100) / 100
}
