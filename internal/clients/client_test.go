package clients

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var testCaller = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestSwapClient_Initiate(t *testing.T) {
	wantID := common.BytesToHash([]byte{0xab})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/swaps" {
			t.Fatalf("got %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(callerHeader); got != testCaller.Hex() {
			t.Fatalf("caller header = %q, want %q", got, testCaller.Hex())
		}
		var params InitiateParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if params.Amount != "100" {
			t.Fatalf("amount = %q, want 100", params.Amount)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(InitiateResult{SwapID: wantID})
	}))
	defer srv.Close()

	c := NewSwapClient(srv.URL, testCaller)
	id, err := c.Initiate(context.Background(), InitiateParams{
		Participant: "0x2222222222222222222222222222222222222222",
		Amount:      "100",
		Hashlock:    common.BytesToHash([]byte{1}).Hex(),
		Timelock:    1_700_010_000,
	})
	if err != nil {
		t.Fatalf("Initiate error: %v", err)
	}
	if id != wantID {
		t.Fatalf("swap id = %s, want %s", id.Hex(), wantID.Hex())
	}
}

func TestSwapClient_ClaimSendsPreimage(t *testing.T) {
	id := common.BytesToHash([]byte{0xab})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/swaps/"+id.Hex()+"/claim" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var params claimParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if string(params.Preimage) != "secret" {
			t.Fatalf("preimage = %q, want secret", params.Preimage)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewSwapClient(srv.URL, testCaller)
	if err := c.Claim(context.Background(), id, []byte("secret")); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
}

func TestSwapClient_GetAndIsActive(t *testing.T) {
	id := common.BytesToHash([]byte{0xab})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/swaps/" + id.Hex():
			json.NewEncoder(w).Encode(SwapResult{
				Swap:   &SwapRecord{ID: id, Amount: big.NewInt(100)},
				Exists: true,
				Status: "ACTIVE",
			})
		case "/api/v1/swaps/" + id.Hex() + "/active":
			json.NewEncoder(w).Encode(ActiveResult{Active: true})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewSwapClient(srv.URL, testCaller)

	got, err := c.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !got.Exists || got.Status != "ACTIVE" || got.Swap.Amount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected result: %+v", got)
	}

	active, err := c.IsActive(context.Background(), id)
	if err != nil {
		t.Fatalf("IsActive error: %v", err)
	}
	if !active {
		t.Fatal("want active")
	}
}

func TestSwapClient_ApiErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "swap already settled"})
	}))
	defer srv.Close()

	c := NewSwapClient(srv.URL, testCaller)
	err := c.Refund(context.Background(), common.BytesToHash([]byte{0xab}))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *ApiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *ApiError", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", apiErr.StatusCode)
	}
	if apiErr.Message != "swap already settled" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}
