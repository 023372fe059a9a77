package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/solmarket/wallet-core/internal/client"
	"github.com/solmarket/wallet-core/internal/common"
	"github.com/solmarket/wallet-core/internal/config"
	"github.com/solmarket/wallet-core/internal/mnemonic"
	"github.com/solmarket/wallet-core/internal/model"
	"github.com/solmarket/wallet-core/wallet"
)

// WalletHandler exposes the create and import flows over HTTP.
type WalletHandler struct {
	service *wallet.Service
}

// NewWalletHandler creates a new WalletHandler around the flow service.
func NewWalletHandler(service *wallet.Service) *WalletHandler {
	return &WalletHandler{service: service}
}

// CreateStart handles POST /wallet/create/start
// @Summary      Start wallet creation
// @Description  Generates a recovery phrase and returns it for one-time display
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateStartRequest  true  "Wallet name and password"
// @Success      200      {object}  model.CreateStartResponse
// @Router       /wallet/create/start [post]
func (h *WalletHandler) CreateStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("name and password are required"))
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	id, words, err := h.service.StartCreate(req.Name, password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, model.CreateStartResponse{FlowID: id, Words: words})
}

// Acknowledge handles POST /wallet/create/acknowledge
// @Summary      Confirm the phrase was written down
// @Description  Moves the flow to verification and returns the word challenge
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.AcknowledgeRequest  true  "Flow id"
// @Success      200      {object}  model.AcknowledgeResponse
// @Router       /wallet/create/acknowledge [post]
func (h *WalletHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	positions, choices, err := h.service.Acknowledge(req.FlowID)
	if err != nil {
		writeError(w, flowErrorStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, model.AcknowledgeResponse{
		FlowID:    req.FlowID,
		Positions: positions,
		Choices:   choices,
	})
}

// Verify handles POST /wallet/create/verify
// @Summary      Verify the phrase and commit the wallet
// @Description  Checks the challenged words; on success stores the bundle and registers the wallet
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.VerifyRequest  true  "Flow id and challenged words in position order"
// @Success      200      {object}  model.WalletResponse
// @Router       /wallet/create/verify [post]
func (h *WalletHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	info, err := h.service.CompleteCreate(r.Context(), req.FlowID, req.Words)
	if err != nil {
		writeError(w, flowErrorStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, model.WalletResponse{
		PublicKey: info.PublicKey,
		Name:      info.Name,
		QR:        info.QR,
	})
}

// ImportStart handles POST /wallet/import/start
// @Summary      Start wallet import
// @Description  Validates the phrase and previews the derived address
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportStartRequest  true  "Recovery phrase, wallet name and password"
// @Success      200      {object}  model.ImportStartResponse
// @Router       /wallet/import/start [post]
func (h *WalletHandler) ImportStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.ImportStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("name and password are required"))
		return
	}

	password := []byte(req.Password)
	defer clear(password)

	id, info, err := h.service.StartImport(req.Phrase, req.Name, password)
	if err != nil {
		writeError(w, flowErrorStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, model.ImportStartResponse{
		FlowID:    id,
		PublicKey: info.PublicKey,
		Name:      info.Name,
	})
}

// ImportConfirm handles POST /wallet/import/confirm
// @Summary      Confirm the previewed import
// @Description  Stores the bundle and registers the wallet with the marketplace
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.FlowRequest  true  "Flow id"
// @Success      200      {object}  model.WalletResponse
// @Router       /wallet/import/confirm [post]
func (h *WalletHandler) ImportConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.FlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	info, err := h.service.ConfirmImport(r.Context(), req.FlowID)
	if err != nil {
		writeError(w, flowErrorStatus(err), err)
		return
	}

	writeJSON(w, http.StatusOK, model.WalletResponse{
		PublicKey: info.PublicKey,
		Name:      info.Name,
		QR:        info.QR,
	})
}

// ImportBack handles POST /wallet/import/back
// @Summary      Return from the import preview to phrase input
// @Description  Discards the previewed flow; only valid from the preview step
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body  model.FlowRequest  true  "Flow id"
// @Success      204
// @Router       /wallet/import/back [post]
func (h *WalletHandler) ImportBack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.FlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.service.BackToInput(req.FlowID); err != nil {
		writeError(w, flowErrorStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Abandon handles POST /wallet/abandon
// @Summary      Abandon a flow
// @Description  Drops the flow at any step and wipes its transient secrets
// @Tags         wallet
// @Accept       json
// @Param        request  body  model.FlowRequest  true  "Flow id"
// @Success      204
// @Router       /wallet/abandon [post]
func (h *WalletHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.FlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	h.service.Abandon(req.FlowID)
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /wallet/list
// @Summary      List stored wallets
// @Description  Lists the addresses of locally stored wallet bundles
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.WalletListResponse
// @Router       /wallet/list [get]
func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	wallets, err := h.service.Wallets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if wallets == nil {
		wallets = []string{}
	}

	writeJSON(w, http.StatusOK, model.WalletListResponse{Wallets: wallets})
}

// Balance handles GET /wallet/balance
// @Summary      Get wallet balance
// @Description  Reads the USDC and SOL balance of a stored wallet from the Solana RPC
// @Tags         wallet
// @Produce      json
// @Param        address  query     string  true  "Wallet address"
// @Success      200      {object}  model.BalanceResponse
// @Router       /wallet/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		writeError(w, http.StatusBadRequest, errors.New("address query parameter is required"))
		return
	}

	solanaClient, err := client.NewSolanaClient(config.GetSolanaRPCURL(), address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	usdcMicro, solLamports, err := solanaClient.GetBalance(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, model.BalanceResponse{
		Address: address,
		USDC:    common.MicroToUSDC(usdcMicro),
		SOL:     common.LamportsToSOL(solLamports),
	})
}

// flowErrorStatus maps flow errors to HTTP statuses. Registration failures
// are the marketplace's fault, persistence failures ours.
func flowErrorStatus(err error) int {
	var regErr *wallet.RegistrationError
	var persErr *wallet.PersistenceError

	switch {
	case errors.Is(err, wallet.ErrFlowNotFound):
		return http.StatusNotFound
	case errors.Is(err, wallet.ErrInvalidFlowState):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrVerificationMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mnemonic.ErrInvalidMnemonic):
		return http.StatusBadRequest
	case errors.As(err, &regErr):
		return http.StatusBadGateway
	case errors.As(err, &persErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}
