package common

func Lerp[T ~float32 | ~float64](a, b, t T) T {
	return a + t*(b-a)
}
