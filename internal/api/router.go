package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/solmarket/wallet-core/internal/handler"
	"github.com/solmarket/wallet-core/wallet"
)

// SetupRouter sets up router with handlers
func SetupRouter(service *wallet.Service) http.Handler {
	walletHandler := handler.NewWalletHandler(service)

	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Wallet flow endpoints
	mux.HandleFunc("/wallet/create/start", walletHandler.CreateStart)
	mux.HandleFunc("/wallet/create/acknowledge", walletHandler.Acknowledge)
	mux.HandleFunc("/wallet/create/verify", walletHandler.Verify)
	mux.HandleFunc("/wallet/import/start", walletHandler.ImportStart)
	mux.HandleFunc("/wallet/import/confirm", walletHandler.ImportConfirm)
	mux.HandleFunc("/wallet/import/back", walletHandler.ImportBack)
	mux.HandleFunc("/wallet/abandon", walletHandler.Abandon)
	mux.HandleFunc("/wallet/list", walletHandler.List)
	mux.HandleFunc("/wallet/balance", walletHandler.Balance)

	return mux
}
