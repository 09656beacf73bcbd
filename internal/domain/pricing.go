package domain

import (
	"fmt"
	"math"
	"strconv"
)

// PayableAmount is the price after a percentage discount, rounded to the
// nearest whole currency unit.
func PayableAmount(price, discount Amount) int64 {
	p := float64(price)
	d := float64(discount)
	return int64(math.Round(p - p*(d/100)))
}

// PriceLabel renders what the user pays for c: "Free", "499" or "800 (-20%)".
func PriceLabel(c Course) string {
	amount := PayableAmount(c.Price, c.Discount)
	if amount == 0 {
		return "Free"
	}
	if c.Discount > 0 {
		return fmt.Sprintf("%d (-%g%%)", amount, float64(c.Discount))
	}
	return strconv.FormatInt(amount, 10)
}
