package contract

// ReleaseAmount returns the payout owed for verifying the milestone at index.
//
// Every milestone releases floor(payment / count). The final milestone instead
// releases whatever remains unreleased, which absorbs the integer-division
// remainder so the total released always equals the payment exactly.
func ReleaseAmount(payment int64, count, index int, released int64) int64 {
	if count <= 0 {
		return 0
	}
	if index == count-1 {
		return payment - released
	}
	return payment / int64(count)
}

// PayoutSchedule returns the per-milestone payouts for in-order verification.
func PayoutSchedule(payment int64, count int) []int64 {
	if count <= 0 {
		return nil
	}
	schedule := make([]int64, count)
	var released int64
	for i := range schedule {
		amount := ReleaseAmount(payment, count, i, released)
		schedule[i] = amount
		released += amount
	}
	return schedule
}
