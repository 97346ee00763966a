package sapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"qanneal/internal/anneal"
	"qanneal/internal/qubo"
)

func testModel(t *testing.T) *qubo.Model {
	t.Helper()
	m, err := qubo.FromQUBO(map[string]float64{
		"(0,0)": -1.0,
		"(1,1)": -1.0,
		"(0,1)": 2.0,
	})
	if err != nil {
		t.Fatalf("FromQUBO: %v", err)
	}
	return m
}

func TestSampleSubmitAndPoll(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /problems", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode submit: %v", err)
		}
		if req.Type != "qubo" || req.NumReads != 10 || req.AnnealingTime != 20 {
			t.Errorf("submit request = %+v", req)
		}
		json.NewEncoder(w).Encode(problemStatus{ID: "prob-1", Status: "PENDING"})
	})
	mux.HandleFunc("GET /problems/prob-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			json.NewEncoder(w).Encode(problemStatus{ID: "prob-1", Status: "IN_PROGRESS"})
			return
		}
		json.NewEncoder(w).Encode(problemStatus{
			ID:     "prob-1",
			Status: "COMPLETED",
			Answer: &wireAnswer{
				Solutions:   [][]int8{{1, 0}, {0, 0}},
				Energies:    []float64{-1, 0},
				Occurrences: []int{7, 3},
				Variables:   []int{0, 1},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL, "secret", WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	set, err := c.Sample(context.Background(), testModel(t), anneal.Params{NumReads: 10, AnnealingTimeUS: 20})
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(set.Samples) != 2 {
		t.Fatalf("len(Samples) = %d, want 2", len(set.Samples))
	}
	best, _ := set.Best()
	if best.Energy != -1 || best.Occurrences != 7 {
		t.Errorf("best = %+v", best)
	}
	if best.Assignment[0] != 1 || best.Assignment[1] != 0 {
		t.Errorf("best assignment = %v, want {0:1, 1:0}", best.Assignment)
	}
	if polls.Load() < 3 {
		t.Errorf("polls = %d, want at least 3", polls.Load())
	}
}

func TestSampleRemoteFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /problems", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(problemStatus{ID: "prob-2", Status: "PENDING"})
	})
	mux.HandleFunc("GET /problems/prob-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(problemStatus{
			ID:           "prob-2",
			Status:       "FAILED",
			ErrorMessage: "embedding not found",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL, "", WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Sample(context.Background(), testModel(t), anneal.Params{NumReads: 1, AnnealingTimeUS: 1})
	var solverErr *anneal.SolverError
	if !errors.As(err, &solverErr) {
		t.Fatalf("error = %v, want *anneal.SolverError", err)
	}
	if want := "embedding not found"; !strings.Contains(solverErr.Msg, want) {
		t.Errorf("SolverError.Msg = %q, want it to mention %q", solverErr.Msg, want)
	}
}

func TestSampleHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(errorBody{Message: "invalid token"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, "bad-token")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.Sample(context.Background(), testModel(t), anneal.Params{NumReads: 1, AnnealingTimeUS: 1})
	var solverErr *anneal.SolverError
	if !errors.As(err, &solverErr) {
		t.Fatalf("error = %v, want *anneal.SolverError", err)
	}
	if !strings.Contains(solverErr.Msg, "invalid token") {
		t.Errorf("SolverError.Msg = %q, want remote diagnostic", solverErr.Msg)
	}
}

func TestSampleContextCancelDuringPoll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /problems", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(problemStatus{ID: "prob-3", Status: "PENDING"})
	})
	mux.HandleFunc("GET /problems/prob-3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(problemStatus{ID: "prob-3", Status: "IN_PROGRESS"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL, "", WithPollInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = c.Sample(ctx, testModel(t), anneal.Params{NumReads: 1, AnnealingTimeUS: 1})
	var solverErr *anneal.SolverError
	if !errors.As(err, &solverErr) {
		t.Fatalf("error = %v, want *anneal.SolverError", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("", "token"); err == nil {
		t.Error("New with empty baseURL should fail")
	}
	if _, err := New("http://example.com", "", WithPollInterval(0)); err == nil {
		t.Error("WithPollInterval(0) should fail")
	}
}

