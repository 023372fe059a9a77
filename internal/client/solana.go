package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	usdcMintAddressMainnet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" // USDC mint address on Solana mainnet (does not work on devnet/testnet)
)

// SolanaClient is a read-only client for the wallet's on-chain balances.
// It never touches private key material: payments are settled elsewhere,
// this client only feeds the dashboard balance view.
type SolanaClient struct {
	rpcClient     *rpc.Client
	mintPublicKey solana.PublicKey
	ownerPubkey   solana.PublicKey
}

// NewSolanaClient creates a balance client for the given wallet address.
func NewSolanaClient(rpcURL, address string) (*SolanaClient, error) {
	ownerPubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid Solana address: %w", err)
	}

	mintPubKey, err := solana.PublicKeyFromBase58(usdcMintAddressMainnet)
	if err != nil {
		return nil, fmt.Errorf("invalid USDC mint address: %w", err)
	}

	return &SolanaClient{
		rpcClient:     rpc.New(rpcURL),
		mintPublicKey: mintPubKey,
		ownerPubkey:   ownerPubkey,
	}, nil
}

// GetBalance gets USDC (micro units) and SOL (lamports) balance for the client's address
func (c *SolanaClient) GetBalance(ctx context.Context) (usdcMicro uint64, solLamports uint64, err error) {
	solLamports, err = c.getSOLBalanceLamports(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get SOL balance: %w", err)
	}

	usdcMicro, err = c.getUSDCBalanceMicro(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get USDC balance: %w", err)
	}

	return usdcMicro, solLamports, nil
}

// getSOLBalanceLamports gets SOL balance in lamports
func (c *SolanaClient) getSOLBalanceLamports(ctx context.Context) (uint64, error) {
	balance, err := c.rpcClient.GetBalance(ctx, c.ownerPubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, err
	}
	return balance.Value, nil
}

// getUSDCBalanceMicro gets USDC balance in micro units (10^-6 USDC)
func (c *SolanaClient) getUSDCBalanceMicro(ctx context.Context) (uint64, error) {
	ataAddress, _, err := solana.FindAssociatedTokenAddress(c.ownerPubkey, c.mintPublicKey)
	if err != nil {
		return 0, fmt.Errorf("failed to find associated token account address: %w", err)
	}

	balance, err := c.rpcClient.GetTokenAccountBalance(ctx, ataAddress, rpc.CommitmentConfirmed)
	if err != nil {
		if isATANotFoundError(err) {
			// No token account yet means the wallet simply never received USDC.
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get token account balance: %w", err)
	}

	if balance.Value == nil {
		return 0, nil
	}

	amount, err := strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse USDC balance amount: %w", err)
	}

	return amount, nil
}

// isATANotFoundError checks if error indicates that token account doesn't exist
func isATANotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "could not find account") ||
		strings.Contains(errStr, "not found")
}
