// Package common holds small formatting helpers shared by the API layer.
package common

import "strconv"

const (
	solDecimals  = 9 // lamports per SOL, as a power of ten
	usdcDecimals = 6 // micro units per USDC
)

// LamportsToSOL renders a lamport amount as a SOL decimal string.
// Integer math only: balances never pass through floats.
func LamportsToSOL(lamports uint64) string {
	return formatUnits(lamports, solDecimals)
}

// MicroToUSDC renders a micro-unit amount as a USDC decimal string.
func MicroToUSDC(micro uint64) string {
	return formatUnits(micro, usdcDecimals)
}

func formatUnits(value uint64, decimals int) string {
	s := strconv.FormatUint(value, 10)
	for len(s) <= decimals {
		s = "0" + s
	}
	split := len(s) - decimals
	return s[:split] + "." + s[split:]
}
