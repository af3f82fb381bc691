package lib

// DigitWidth returns the number of decimal digits needed to print val.
func DigitWidth(val int) int {
	if val < 0 {
		val = -val
	}

	width := 1
	for val >= 10 {
		val /= 10
		width++
	}
	return width
}
