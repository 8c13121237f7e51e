// Copyright 2025 Ledgerflow Authors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Hedera.TransactionMaxValidDuration.Duration() != 180*time.Second {
		t.Errorf("expected 180s dedup horizon, got %s", cfg.Hedera.TransactionMaxValidDuration.Duration())
	}
	if cfg.Ledger.RecordsMaxQueryableByAccount != 10 {
		t.Errorf("expected record cache depth 10, got %d", cfg.Ledger.RecordsMaxQueryableByAccount)
	}
	if cfg.MaxTransactionBytes != 6144 {
		t.Errorf("expected fixed max_transaction_bytes 6144, got %d", cfg.MaxTransactionBytes)
	}
}

func TestLoadSubstitutesEnvVarsAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "workflowVerificationTimeoutMS: ${VERIFY_TIMEOUT_MS}\nconfig_version: 4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VERIFY_TIMEOUT_MS", "1500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.WorkflowVerificationTimeoutMS != 1500 {
		t.Errorf("expected 1500, got %d", cfg.WorkflowVerificationTimeoutMS)
	}
	if cfg.ConfigVersion != 4 {
		t.Errorf("expected config_version 4, got %d", cfg.ConfigVersion)
	}
	// hedera.transactionMaxValidDuration was never set in the file, so
	// the default still applies.
	if cfg.Hedera.TransactionMaxValidDuration.Duration() != 180*time.Second {
		t.Errorf("expected default dedup horizon, got %s", cfg.Hedera.TransactionMaxValidDuration.Duration())
	}
	// max_transaction_bytes is always fixed, even if the file tried to
	// override it.
	if cfg.MaxTransactionBytes != 6144 {
		t.Errorf("expected fixed max_transaction_bytes, got %d", cfg.MaxTransactionBytes)
	}
}

func TestLoadMaxTransactionBytesIsNeverOverridable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("max_transaction_bytes: 99999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxTransactionBytes != 6144 {
		t.Errorf("expected fixed 6144 regardless of file content, got %d", cfg.MaxTransactionBytes)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error loading a nonexistent config file")
	}
}
