package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLamportsToSOL(t *testing.T) {
	require.Equal(t, "0.000000000", LamportsToSOL(0))
	require.Equal(t, "0.000000001", LamportsToSOL(1))
	require.Equal(t, "1.000000000", LamportsToSOL(1_000_000_000))
	require.Equal(t, "0.024981836", LamportsToSOL(24_981_836))
}

func TestMicroToUSDC(t *testing.T) {
	require.Equal(t, "0.000001", MicroToUSDC(1))
	require.Equal(t, "12.500000", MicroToUSDC(12_500_000))
	require.Equal(t, "100.000000", MicroToUSDC(100_000_000))
}
