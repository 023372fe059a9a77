package model

// BalanceResponse represents response for GET /wallet/balance
type BalanceResponse struct {
	Address string `json:"address"`
	USDC    string `json:"usdc"`
	SOL     string `json:"sol"`
}
