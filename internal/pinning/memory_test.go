package pinning_test

import (
	"context"
	"testing"
	"time"

	"github.com/copperhead-labs/attestation-server/internal/pinning"
)

func sampleRecord() *pinning.PairingRecord {
	var fpr [32]byte
	fpr[0] = 0x01
	var vbk [32]byte
	vbk[0] = 0x02
	now := time.Now()
	return &pinning.PairingRecord{
		PersistentKeyFingerprint: fpr,
		PinnedCert0:              []byte("cert0"),
		PinnedCert1:              []byte("cert1"),
		PinnedCert2:              []byte("cert2"),
		PinnedVerifiedBootKey:    vbk,
		PinnedOSVersion:          80000,
		PinnedOSPatchLevel:       201801,
		PinnedAppVersion:         7,
		VerifiedTimeFirst:        now,
		VerifiedTimeLast:         now,
	}
}

func TestMemoryStoreCreateThenGet(t *testing.T) {
	ctx := context.Background()
	s := pinning.NewMemoryStore()
	rec := sampleRecord()

	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, rec.PersistentKeyFingerprint)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected record, got nil")
	}
	if got.PinnedOSVersion != rec.PinnedOSVersion {
		t.Errorf("PinnedOSVersion = %d, want %d", got.PinnedOSVersion, rec.PinnedOSVersion)
	}
}

func TestMemoryStoreCreateTwiceFails(t *testing.T) {
	ctx := context.Background()
	s := pinning.NewMemoryStore()
	rec := sampleRecord()

	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, rec); err != pinning.ErrAlreadyExists {
		t.Fatalf("second Create: got %v, want ErrAlreadyExists", err)
	}
}

func TestMemoryStoreGetMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := pinning.NewMemoryStore()
	var fpr [32]byte
	got, err := s.Get(ctx, fpr)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing record, got %+v", got)
	}
}

func TestMemoryStoreUpdateMonotonicAdvances(t *testing.T) {
	ctx := context.Background()
	s := pinning.NewMemoryStore()
	rec := sampleRecord()
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	later := rec.VerifiedTimeLast.Add(24 * time.Hour)
	if err := s.UpdateMonotonic(ctx, rec.PersistentKeyFingerprint, 80000, 201802, 7, later); err != nil {
		t.Fatalf("UpdateMonotonic: %v", err)
	}

	got, err := s.Get(ctx, rec.PersistentKeyFingerprint)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PinnedOSPatchLevel != 201802 {
		t.Errorf("PinnedOSPatchLevel = %d, want 201802", got.PinnedOSPatchLevel)
	}
}

func TestMemoryStoreUpdateMonotonicRejectsDowngrade(t *testing.T) {
	ctx := context.Background()
	s := pinning.NewMemoryStore()
	rec := sampleRecord()
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.UpdateMonotonic(ctx, rec.PersistentKeyFingerprint, 80000, 201712, 7, time.Now()); err == nil {
		t.Fatalf("expected UpdateMonotonic to reject a patch-level downgrade")
	}
}

func TestMemoryStoreAppendAuditCounts(t *testing.T) {
	ctx := context.Background()
	s := pinning.NewMemoryStore()
	var fpr [32]byte
	if err := s.AppendAudit(ctx, fpr, true, "tee", "os"); err != nil {
		t.Fatalf("AppendAudit: %v", err)
	}
	if s.AuditCount() != 1 {
		t.Errorf("AuditCount = %d, want 1", s.AuditCount())
	}
}
