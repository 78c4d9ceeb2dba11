package main

import (
	"context"
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"juristBack/internal/payments"
)

func (app *application) routes() (http.Handler, error) {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.JWTMiddleware)

	mux := pat.New()
	mux.Get("/healthz", standardMiddleware.ThenFunc(app.health))

	if err := payments.RegisterPaymentRoutes(context.Background(), mux, app.paymentsDeps, standardMiddleware, authMiddleware); err != nil {
		return nil, err
	}
	return mux, nil
}

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
