package solana

import "github.com/shopspring/decimal"

// LamportsPerSOL is Solana's fixed 9-decimal denomination.
const LamportsPerSOL = 1_000_000_000

// LamportsToSOL converts exactly, with no floating point involved.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.New(int64(lamports), -9)
}

// SOLToLamports truncates toward zero; negative amounts clamp to 0.
func SOLToLamports(sol decimal.Decimal) uint64 {
	lamports := sol.Shift(9).IntPart()
	if lamports < 0 {
		return 0
	}
	return uint64(lamports)
}

// FormatSOL renders a lamport balance as a human amount, e.g. "2.5 SOL".
func FormatSOL(lamports uint64) string {
	return LamportsToSOL(lamports).String() + " SOL"
}
