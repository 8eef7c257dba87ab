package device

import "golang.org/x/exp/rand"

func cleari32(a []int32) {
	for i := range a {
		a[i] = 0
	}
}

// randf64 fills a with uniform noise in [-1, 1).
func randf64(rng *rand.Rand, a []float64) {
	for i := range a {
		a[i] = rng.Float64()*2 - 1
	}
}

func alloci32(n int) []int32 {
	return make([]int32, n)
}

func allocBlock(channels, frames int) [][]int32 {
	block := make([][]int32, channels)
	for i := range block {
		block[i] = alloci32(frames)
	}
	return block
}
