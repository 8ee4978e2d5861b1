// Package fees computes the lamport amounts a listing request must hold.
package fees

// RequiredFunding is the total balance a listing request account needs:
// the listing fee held in escrow plus the rent-exempt reserve for the
// account's data size.
func RequiredFunding(fee, rentReserve uint64) uint64 {
	return fee + rentReserve
}

// TopOff returns how many lamports must be added to reach the required
// funding. Zero when the balance already covers it; never negative.
func TopOff(required, balance uint64) uint64 {
	if balance >= required {
		return 0
	}
	return required - balance
}

// Payout is the escrowed fee amount released on approval or denial:
// the balance above the rent-exempt reserve, clamped at zero so a
// underfunded record never produces an underflowing payout.
func Payout(balance, rentReserve uint64) uint64 {
	if balance <= rentReserve {
		return 0
	}
	return balance - rentReserve
}
