//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"paystack-billing/internal/domain/model"
	"paystack-billing/internal/domain/ports/repository"
)

func seedHost(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
INSERT INTO users (id, email, name, email_verified) VALUES
  ('user_a', 'a@example.com', 'A', TRUE),
  ('user_b', 'b@example.com', 'B', TRUE);
INSERT INTO organizations (id, name) VALUES ('org_1', 'Acme');
INSERT INTO members (id, organization_id, user_id, role) VALUES
  ('m1', 'org_1', 'user_a', 'owner'),
  ('m2', 'org_1', 'user_b', 'member');
INSERT INTO teams (id, organization_id, name) VALUES ('t1', 'org_1', 'core');`)
	if err != nil {
		t.Fatalf("seed host tables: %v", err)
	}
}

func TestTransactionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewTransactionRepo(testPool)

	t.Run("should save, find and mark status once", func(t *testing.T) {
		cleanup(t)
		tx, _ := model.NewTransaction("ref_1", "org_1", "user_a", 500000, "NGN")
		tx.Plan = "pro"
		tx.Metadata = model.NewMetadata(map[string]any{"source": "test"})
		tx.Metadata.ReferenceID = "org_1"
		if err := repo.Save(ctx, nil, tx); err != nil {
			t.Fatalf("Save: %v", err)
		}

		found, err := repo.FindByReference(ctx, nil, "ref_1")
		if err != nil {
			t.Fatalf("FindByReference: %v", err)
		}
		if found.Metadata.ReferenceID != "org_1" || found.Metadata.Extra["source"] != "test" {
			t.Errorf("metadata round trip failed: %+v", found.Metadata)
		}

		paidAt := time.Now()
		ok, err := repo.MarkStatus(ctx, nil, "ref_1", model.TransactionStatusSuccess, "99", &paidAt)
		if err != nil || !ok {
			t.Fatalf("first MarkStatus = %v, %v", ok, err)
		}
		ok, err = repo.MarkStatus(ctx, nil, "ref_1", model.TransactionStatusSuccess, "99", &paidAt)
		if err != nil || ok {
			t.Fatalf("second MarkStatus should be a no-op, got %v, %v", ok, err)
		}
		ok, _ = repo.MarkStatus(ctx, nil, "ref_1", model.TransactionStatusFailed, "", nil)
		if ok {
			t.Error("success must not regress to failed")
		}
	})

	t.Run("should list newest first", func(t *testing.T) {
		cleanup(t)
		older, _ := model.NewTransaction("ref_old", "org_1", "user_a", 100, "NGN")
		older.CreatedAt = time.Now().Add(-time.Hour)
		newer, _ := model.NewTransaction("ref_new", "org_1", "user_a", 100, "NGN")
		_ = repo.Save(ctx, nil, older)
		_ = repo.Save(ctx, nil, newer)

		list, err := repo.ListByReferenceID(ctx, nil, "org_1")
		if err != nil {
			t.Fatalf("ListByReferenceID: %v", err)
		}
		if len(list) != 2 || list[0].Reference != "ref_new" {
			t.Errorf("unexpected order: %+v", list)
		}
	})
}

func TestSubscriptionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)

	t.Run("should confirm only incomplete rows owned by the reference", func(t *testing.T) {
		cleanup(t)
		sub, _ := model.NewSubscription("pro", "org_1", "ref_1")
		if err := repo.Save(ctx, nil, sub); err != nil {
			t.Fatalf("Save: %v", err)
		}

		upd := repository.ConfirmUpdate{Status: model.SubscriptionStatusActive, PeriodStart: time.Now(), CustomerCode: "CUS_1"}
		ok, err := repo.Confirm(ctx, nil, "ref_1", "org_other", upd)
		if err != nil || ok {
			t.Fatalf("foreign owner must not confirm, got %v, %v", ok, err)
		}
		ok, err = repo.Confirm(ctx, nil, "ref_1", "org_1", upd)
		if err != nil || !ok {
			t.Fatalf("Confirm = %v, %v", ok, err)
		}
		ok, _ = repo.Confirm(ctx, nil, "ref_1", "org_1", upd)
		if ok {
			t.Error("second Confirm must be a no-op")
		}

		got, _ := repo.FindByID(ctx, nil, sub.ID)
		if got.Status != model.SubscriptionStatusActive || got.PaystackCustomerCode != "CUS_1" {
			t.Errorf("unexpected row %+v", got)
		}
	})

	t.Run("should cancel once and return the previous snapshot", func(t *testing.T) {
		cleanup(t)
		sub, _ := model.NewSubscription("pro", "org_1", "ref_2")
		sub.Status = model.SubscriptionStatusActive
		sub.PaystackSubscriptionCode = "SUB_1"
		_ = repo.Save(ctx, nil, sub)

		prev, ok, err := repo.CancelByPaystackCode(ctx, nil, "SUB_1")
		if err != nil || !ok {
			t.Fatalf("CancelByPaystackCode = %v, %v", ok, err)
		}
		if prev.Status != model.SubscriptionStatusActive {
			t.Errorf("expected pre-update status active, got %s", prev.Status)
		}
		_, ok, err = repo.CancelByPaystackCode(ctx, nil, "SUB_1")
		if err != nil || ok {
			t.Errorf("second cancel must be a no-op, got %v, %v", ok, err)
		}
	})

	t.Run("should track trial history", func(t *testing.T) {
		cleanup(t)
		has, _ := repo.HasTrialHistory(ctx, nil, "org_1")
		if has {
			t.Fatal("expected no trial history")
		}
		sub, _ := model.NewSubscription("pro", "org_1", "ref_3")
		sub.StartTrial(time.Now(), 7)
		_ = repo.Save(ctx, nil, sub)
		has, _ = repo.HasTrialHistory(ctx, nil, "org_1")
		if !has {
			t.Error("expected trial history")
		}
	})

	t.Run("should skip unconfirmed trials when finding the effective row", func(t *testing.T) {
		cleanup(t)
		active, _ := model.NewSubscription("pro", "org_1", "ref_5")
		active.Status = model.SubscriptionStatusActive
		_ = repo.Save(ctx, nil, active)
		unpaid, _ := model.NewSubscription("team", "org_1", "ref_6")
		unpaid.StartTrial(time.Now(), 14)
		_ = repo.Save(ctx, nil, unpaid)

		got, err := repo.FindEffective(ctx, nil, "org_1")
		if err != nil {
			t.Fatalf("FindEffective: %v", err)
		}
		if got.ID != active.ID {
			t.Errorf("expected the active row, got %s (%s)", got.Plan, got.Status)
		}
	})

	t.Run("should join a transaction", func(t *testing.T) {
		cleanup(t)
		tm := NewTxManager(testPool)
		sub, _ := model.NewSubscription("pro", "org_1", "ref_4")
		err := tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := repo.Save(ctx, tx, sub); err != nil {
				return err
			}
			_, err := repo.FindByID(ctx, tx, sub.ID)
			return err
		})
		if err != nil {
			t.Fatalf("WithTx: %v", err)
		}
	})
}

func TestOrganizationRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	cleanup(t)
	seedHost(t)
	orgs := NewOrganizationRepo(testPool)
	users := NewUserRepo(testPool)

	owner, err := orgs.FindOwner(ctx, nil, "org_1")
	if err != nil || owner.ID != "user_a" {
		t.Fatalf("FindOwner = %+v, %v", owner, err)
	}
	m, err := orgs.FindMember(ctx, nil, "org_1", "user_b")
	if err != nil || m.Role != model.MemberRoleMember {
		t.Fatalf("FindMember = %+v, %v", m, err)
	}
	if n, _ := orgs.CountMembers(ctx, nil, "org_1"); n != 2 {
		t.Errorf("CountMembers = %d", n)
	}
	if n, _ := orgs.CountTeams(ctx, nil, "org_1"); n != 1 {
		t.Errorf("CountTeams = %d", n)
	}

	ok, _ := users.SetCustomerCode(ctx, nil, "user_a", "CUS_A")
	if !ok {
		t.Error("first SetCustomerCode should write")
	}
	ok, _ = users.SetCustomerCode(ctx, nil, "user_a", "CUS_OTHER")
	if ok {
		t.Error("existing customer code must not be overwritten")
	}
	u, _ := users.FindByID(ctx, nil, "user_a")
	if u.PaystackCustomerCode != "CUS_A" {
		t.Errorf("unexpected customer code %q", u.PaystackCustomerCode)
	}
}
