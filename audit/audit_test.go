// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/ledger"
	"github.com/danielhkuo/quickly-vote/metrics"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/store"
	"github.com/danielhkuo/quickly-vote/testutil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type fixture struct {
	auditor *Auditor
	ledger  *ledger.Ledger
	conn    *sql.DB
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, m *metrics.Metrics) (fixture, context.Context) {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))

	l := ledger.New(conn, db.SQLite, testutil.Logger())
	s := store.New(conn, db.SQLite, testutil.Logger())

	return fixture{
		auditor: New(s, l, WithLogger(logger), WithMetrics(m)),
		ledger:  l,
		conn:    conn,
		logs:    logs,
	}, context.Background()
}

func (f fixture) cast(t *testing.T, electionID, candidateID int64, voterKey string) {
	t.Helper()
	err := f.ledger.AppendBallotAndIncrement(context.Background(), models.Ballot{
		ID:             uuid.NewString(),
		ElectionID:     electionID,
		CandidateID:    candidateID,
		VoterAnonymKey: voterKey,
		CastAt:         time.Now(),
	})
	if err != nil {
		t.Fatalf("AppendBallotAndIncrement() failed: %v", err)
	}
}

func (f fixture) exec(t *testing.T, query string, args ...any) {
	t.Helper()
	if _, err := f.conn.Exec(query, args...); err != nil {
		t.Fatalf("Exec(%q) failed: %v", query, err)
	}
}

func TestVerify_UnknownElection(t *testing.T) {
	f, ctx := newFixture(t, nil)

	_, err := f.auditor.Verify(ctx, 42)
	if !errors.Is(err, store.ErrElectionNotFound) {
		t.Fatalf("Expected ErrElectionNotFound, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name           string
		corrupt        func(t *testing.T, f fixture, electionID, alice, bob int64)
		wantDuplicates int
		wantMismatches int
		wantCritical   bool
	}{
		{
			name:    "clean",
			corrupt: func(t *testing.T, f fixture, electionID, alice, bob int64) {},
		},
		{
			name: "stored count drift",
			corrupt: func(t *testing.T, f fixture, electionID, alice, bob int64) {
				f.exec(t, `UPDATE candidate SET vote_count = vote_count + 3 WHERE id = ?`, bob)
			},
			wantMismatches: 1,
		},
		{
			name: "ballot written around the ledger",
			corrupt: func(t *testing.T, f fixture, electionID, alice, bob int64) {
				testutil.InsertRawBallot(t, f.conn, electionID, bob, "key-bypass")
			},
			wantMismatches: 1,
		},
		{
			name: "duplicate voter key",
			corrupt: func(t *testing.T, f fixture, electionID, alice, bob int64) {
				testutil.DropUniqueBallotIndex(t, f.conn)
				testutil.InsertRawBallot(t, f.conn, electionID, alice, "key-v1")
				f.exec(t, `UPDATE candidate SET vote_count = vote_count + 1 WHERE id = ?`, alice)
			},
			wantDuplicates: 1,
			wantCritical:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ctx := newFixture(t, nil)
			conn := f.conn

			electionID := testutil.CreateActiveElection(t, conn)
			alice := testutil.AddTestCandidate(t, conn, electionID, "Alice")
			bob := testutil.AddTestCandidate(t, conn, electionID, "Bob")

			f.cast(t, electionID, alice, "key-v1")
			f.cast(t, electionID, bob, "key-v2")

			tt.corrupt(t, f, electionID, alice, bob)

			report, err := f.auditor.Verify(ctx, electionID)
			if err != nil {
				t.Fatalf("Verify() failed: %v", err)
			}

			if len(report.Duplicates) != tt.wantDuplicates {
				t.Errorf("Expected %d duplicates, got %v", tt.wantDuplicates, report.Duplicates)
			}
			if len(report.CountMismatches) != tt.wantMismatches {
				t.Errorf("Expected %d mismatches, got %+v", tt.wantMismatches, report.CountMismatches)
			}

			critical := strings.Contains(f.logs.String(), `"alert":"critical"`)
			if critical != tt.wantCritical {
				t.Errorf("critical alert logged = %v, want %v\nlogs: %s", critical, tt.wantCritical, f.logs.String())
			}
			if strings.Contains(f.logs.String(), "key-v1") {
				t.Error("Voter keys must never be logged")
			}
		})
	}
}

func TestVerify_NeverRepairs(t *testing.T) {
	f, ctx := newFixture(t, nil)
	conn := f.conn

	electionID := testutil.CreateActiveElection(t, conn)
	alice := testutil.AddTestCandidate(t, conn, electionID, "Alice")
	f.cast(t, electionID, alice, "key-v1")
	f.exec(t, `UPDATE candidate SET vote_count = 9 WHERE id = ?`, alice)

	for i := 0; i < 2; i++ {
		report, err := f.auditor.Verify(ctx, electionID)
		if err != nil {
			t.Fatalf("Verify() failed: %v", err)
		}
		if len(report.CountMismatches) != 1 {
			t.Fatalf("Run %d: expected the mismatch to persist, got %+v", i, report.CountMismatches)
		}
	}
	if got := testutil.VoteCount(t, conn, alice); got != 9 {
		t.Errorf("Verify changed vote_count to %d", got)
	}
}

func TestVerify_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New()
	m.Register(registry)

	f, ctx := newFixture(t, m)

	electionID := testutil.CreateActiveElection(t, f.conn)
	alice := testutil.AddTestCandidate(t, f.conn, electionID, "Alice")
	f.cast(t, electionID, alice, "key-v1")
	f.exec(t, `UPDATE candidate SET vote_count = 0 WHERE id = ?`, alice)

	if _, err := f.auditor.Verify(ctx, electionID); err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}

	got := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			name := mf.GetName()
			for _, label := range metric.GetLabel() {
				name += "/" + label.GetValue()
			}
			got[name] = metric.GetCounter().GetValue()
		}
	}

	if got["quickly_vote_audit_runs_total"] != 1 {
		t.Errorf("Expected 1 audit run, got %v", got["quickly_vote_audit_runs_total"])
	}
	if got["quickly_vote_audit_findings_total/"+metrics.FindingMismatch] != 1 {
		t.Errorf("Expected 1 mismatch finding, got %v", got)
	}
	if got["quickly_vote_audit_findings_total/"+metrics.FindingDuplicate] != 0 {
		t.Errorf("Expected no duplicate findings, got %v", got)
	}
}
