package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/simpletech310/redline/internal/engine"
	"github.com/simpletech310/redline/internal/model"
	"github.com/simpletech310/redline/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// newTestEnv creates a test Service with an in-memory journal and chi router.
func newTestEnv(t *testing.T) (*engine.Service, chi.Router) {
	t.Helper()
	svc := engine.NewService(store.NewMemoryJournal(), nil, nil)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		svc.Routes(r)
	})
	return svc, r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedAccount(t *testing.T, svc *engine.Service, username string, role model.Role, funds float64) model.Account {
	t.Helper()
	acct, err := svc.RegisterAccount(context.Background(), username, role)
	if err != nil {
		t.Fatalf("RegisterAccount(%s): %v", username, err)
	}
	if funds > 0 {
		if _, err := svc.Deposit(context.Background(), acct.ID, d(funds), "seed:"+acct.ID); err != nil {
			t.Fatalf("Deposit(%s): %v", username, err)
		}
	}
	return acct
}

func TestHTTPRegisterAccount(t *testing.T) {
	_, router := newTestEnv(t)

	w := doJSON(t, router, "POST", "/api/v1/accounts", engine.RegisterAccountRequest{
		Username: "driver",
		Role:     model.RoleParticipant,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var acct model.Account
	if err := json.Unmarshal(w.Body.Bytes(), &acct); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if acct.ID == "" || acct.Role != model.RoleParticipant {
		t.Fatalf("unexpected account: %+v", acct)
	}

	// Duplicate username maps to 400.
	w = doJSON(t, router, "POST", "/api/v1/accounts", engine.RegisterAccountRequest{
		Username: "driver",
		Role:     model.RoleSpectator,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", w.Code)
	}
}

func TestHTTPRunLifecycle(t *testing.T) {
	svc, router := newTestEnv(t)
	owner := seedAccount(t, svc, "owner", model.RoleTeamOwner, 0)
	a := seedAccount(t, svc, "driver-a", model.RoleParticipant, 1000)
	b := seedAccount(t, svc, "driver-b", model.RoleParticipant, 1000)
	backer := seedAccount(t, svc, "backer", model.RoleSpectator, 100)

	w := doJSON(t, router, "POST", "/api/v1/runs", engine.CreateRunRequest{
		CreatorID:    owner.ID,
		Name:         "Street Cup",
		Type:         model.RunTypeRace,
		EntryFee:     d(500),
		PicksEnabled: true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var run model.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		w = doJSON(t, router, "POST", "/api/v1/runs/"+run.ID+"/join", engine.JoinRunRequest{UserID: id})
		if w.Code != http.StatusOK {
			t.Fatalf("join status = %d: %s", w.Code, w.Body.String())
		}
	}

	w = doJSON(t, router, "POST", "/api/v1/picks", engine.PlacePickRequest{
		UserID:      backer.ID,
		RunID:       run.ID,
		PredictedID: a.ID,
		Stake:       d(50),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("pick status = %d: %s", w.Code, w.Body.String())
	}
	var pick model.Pick
	if err := json.Unmarshal(w.Body.Bytes(), &pick); err != nil {
		t.Fatalf("decode pick: %v", err)
	}
	if !pick.Odds.Equal(d(2.00)) {
		t.Fatalf("pick odds = %s, want 2", pick.Odds)
	}

	w = doJSON(t, router, "POST", "/api/v1/runs/"+run.ID+"/results", engine.PostResultsRequest{
		ActorID:  owner.ID,
		WinnerID: a.ID,
		Times:    map[string]float64{a.ID: 10.2, b.ID: 10.9},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("results status = %d: %s", w.Code, w.Body.String())
	}
	var snap model.ResultSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if !snap.WinnerPayout.Equal(d(900)) || !snap.PlatformCut.Equal(d(100)) {
		t.Fatalf("payout/cut = %s/%s, want 900/100", snap.WinnerPayout, snap.PlatformCut)
	}

	// Repeat settlement maps to 409.
	w = doJSON(t, router, "POST", "/api/v1/runs/"+run.ID+"/results", engine.PostResultsRequest{
		ActorID:  owner.ID,
		WinnerID: a.ID,
		Times:    map[string]float64{a.ID: 10.2, b.ID: 10.9},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("repeat results status = %d, want 409", w.Code)
	}

	// Wallet view reflects the settled payout: 1000 − 500 + 900.
	w = doJSON(t, router, "GET", "/api/v1/wallets/"+a.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("wallet status = %d", w.Code)
	}
	var view engine.WalletView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode wallet: %v", err)
	}
	if !view.Balance.Equal(d(1400)) {
		t.Fatalf("winner balance = %s, want 1400", view.Balance)
	}

	// Card view records the win.
	w = doJSON(t, router, "GET", "/api/v1/cards/"+a.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("card status = %d", w.Code)
	}
}

func TestHTTPErrorStatusMapping(t *testing.T) {
	svc, router := newTestEnv(t)
	owner := seedAccount(t, svc, "owner", model.RoleTeamOwner, 0)
	spectator := seedAccount(t, svc, "watcher", model.RoleSpectator, 10)

	run, err := svc.CreateRun(context.Background(), owner.ID, engine.CreateRunParams{
		Name: "Guard Run", Type: model.RunTypeRace, EntryFee: d(500), PicksEnabled: true,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown run", "GET", "/api/v1/runs/missing", nil, http.StatusNotFound},
		{"spectator join forbidden", "POST", "/api/v1/runs/" + run.ID + "/join",
			engine.JoinRunRequest{UserID: spectator.ID}, http.StatusForbidden},
		{"unknown wallet", "GET", "/api/v1/wallets/missing", nil, http.StatusNotFound},
		{"malformed body", "POST", "/api/v1/accounts", "not-json", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := doJSON(t, router, tc.method, tc.path, tc.body)
		if w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (%s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestHTTPInsufficientFundsStatus(t *testing.T) {
	svc, router := newTestEnv(t)
	owner := seedAccount(t, svc, "owner", model.RoleTeamOwner, 0)
	broke := seedAccount(t, svc, "broke", model.RoleParticipant, 0)

	run, err := svc.CreateRun(context.Background(), owner.ID, engine.CreateRunParams{
		Name: "Expensive Run", Type: model.RunTypeRace, EntryFee: d(500),
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	w := doJSON(t, router, "POST", "/api/v1/runs/"+run.ID+"/join", engine.JoinRunRequest{UserID: broke.ID})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["code"] != "InsufficientFunds" {
		t.Fatalf("code = %q, want InsufficientFunds", resp["code"])
	}
}
