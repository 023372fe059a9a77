package model

// CreateStartRequest represents request for POST /wallet/create/start
type CreateStartRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateStartResponse carries the fresh recovery phrase for display. The
// phrase appears in this response only; no later step returns it again.
type CreateStartResponse struct {
	FlowID string   `json:"flowId"`
	Words  []string `json:"words"`
}

// AcknowledgeRequest represents request for POST /wallet/create/acknowledge
type AcknowledgeRequest struct {
	FlowID string `json:"flowId" binding:"required"`
}

// AcknowledgeResponse carries the verification challenge: which word
// positions to prove, and the candidate words in shuffled order.
type AcknowledgeResponse struct {
	FlowID    string   `json:"flowId"`
	Positions []int    `json:"positions"`
	Choices   []string `json:"choices"`
}

// VerifyRequest represents request for POST /wallet/create/verify
type VerifyRequest struct {
	FlowID string   `json:"flowId" binding:"required"`
	Words  []string `json:"words" binding:"required"`
}

// ImportStartRequest represents request for POST /wallet/import/start
type ImportStartRequest struct {
	Phrase   string `json:"phrase" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ImportStartResponse previews the derived address before commitment.
type ImportStartResponse struct {
	FlowID    string `json:"flowId"`
	PublicKey string `json:"publicKey"`
	Name      string `json:"name"`
}

// FlowRequest addresses an existing flow (confirm, back, abandon).
type FlowRequest struct {
	FlowID string `json:"flowId" binding:"required"`
}

// WalletResponse represents a committed wallet
type WalletResponse struct {
	PublicKey string `json:"publicKey"`
	Name      string `json:"name"`
	QR        string `json:"qr"`
}

// WalletListResponse represents response for GET /wallet/list
type WalletListResponse struct {
	Wallets []string `json:"wallets"`
}
