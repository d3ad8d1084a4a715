package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/crafty-backend/internal/modules/auth"
	"github.com/georgemunganga/crafty-backend/internal/modules/order"
	"github.com/georgemunganga/crafty-backend/internal/modules/user"
)

func newTestRouter(t *testing.T, env *testEnv, principal auth.Principal) *chi.Mux {
	t.Helper()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithPrincipal(req.Context(), principal)))
		})
	})
	NewHandler(env.svc, env.orders).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestHandler_CreateAndVerify(t *testing.T) {
	env := newTestEnv(t, testPaymentConfig())
	o := env.orders.add(order.StatusPending, "25.00")
	r := newTestRouter(t, env, auth.Principal{UserID: o.UserID.String(), Role: user.RoleCustomer})

	rec := do(r, http.MethodPost, "/api/v1/payments", CreatePaymentRequest{OrderID: o.ID.String(), Method: "card"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CreatePaymentResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.RedirectURL)

	rec = do(r, http.MethodPost, "/api/v1/payments", CreatePaymentRequest{OrderID: o.ID.String(), Method: "card"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/payments/verify", VerifyPaymentRequest{TransactionID: created.TransactionID})
	require.Equal(t, http.StatusOK, rec.Code)
	var verified VerifyResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&verified))
	assert.Equal(t, TransitionApplied, verified.OrderTransition)

	rec = do(r, http.MethodGet, "/api/v1/payments/"+created.TransactionID+"/link", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(r, http.MethodGet, "/api/v1/payments/order/"+o.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_OtherCustomersAreForbidden(t *testing.T) {
	env := newTestEnv(t, testPaymentConfig())
	o := env.orders.add(order.StatusPending, "25.00")
	res, err := env.svc.CreatePayment(context.Background(), CreatePaymentRequest{OrderID: o.ID.String(), Method: "cod"})
	require.NoError(t, err)
	r := newTestRouter(t, env, auth.Principal{UserID: uuid.NewString(), Role: user.RoleCustomer})

	rec := do(r, http.MethodPost, "/api/v1/payments", CreatePaymentRequest{OrderID: o.ID.String(), Method: "card"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(r, http.MethodPost, "/api/v1/payments/verify", VerifyPaymentRequest{TransactionID: res.TransactionID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(r, http.MethodGet, "/api/v1/payments/"+res.TransactionID+"/instructions", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(r, http.MethodPost, "/api/v1/payments/cod/confirm", ConfirmDeliveryRequest{TransactionID: res.TransactionID, DeliveryCode: res.DeliveryCode})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(r, http.MethodPost, "/api/v1/payments/refund", RefundPaymentRequest{TransactionID: res.TransactionID})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_AdminConfirmsDelivery(t *testing.T) {
	env := newTestEnv(t, testPaymentConfig())
	o := env.orders.add(order.StatusPending, "14.00")
	res, err := env.svc.CreatePayment(context.Background(), CreatePaymentRequest{OrderID: o.ID.String(), Method: "cod"})
	require.NoError(t, err)
	r := newTestRouter(t, env, auth.Principal{UserID: uuid.NewString(), Role: user.RoleAdmin})

	rec := do(r, http.MethodPost, "/api/v1/payments/cod/confirm", ConfirmDeliveryRequest{TransactionID: res.TransactionID, DeliveryCode: "999999x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/payments/cod/confirm", ConfirmDeliveryRequest{TransactionID: res.TransactionID, DeliveryCode: res.DeliveryCode})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, order.StatusConfirmed, env.orders.status(o.ID))

	rec = do(r, http.MethodPost, "/api/v1/payments/refund", RefundPaymentRequest{TransactionID: res.TransactionID, Method: "card"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Methods(t *testing.T) {
	env := newTestEnv(t, testPaymentConfig())
	r := newTestRouter(t, env, auth.Principal{UserID: uuid.NewString(), Role: user.RoleCustomer})

	rec := do(r, http.MethodGet, "/api/v1/payments/methods", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var methods []MethodInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&methods))
	assert.Len(t, methods, 4)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		ErrPaymentNotFound:          http.StatusNotFound,
		order.ErrOrderNotFound:      http.StatusNotFound,
		ErrPaymentExists:            http.StatusConflict,
		ErrInvalidPaymentState:      http.StatusConflict,
		ErrUnsupportedPaymentMethod: http.StatusBadRequest,
		ErrMethodMismatch:           http.StatusBadRequest,
		ErrInvalidDeliveryCode:      http.StatusBadRequest,
		order.ErrForbidden:          http.StatusForbidden,
		ErrGatewayFailure:           http.StatusBadGateway,
		assert.AnError:              http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
