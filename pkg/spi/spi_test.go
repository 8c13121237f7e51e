// Copyright 2025 Ledgerflow Authors

package spi

import (
	"errors"
	"testing"

	"github.com/ledgerflow/txengine/pkg/types"
)

func TestHandlerOutcomeClassification(t *testing.T) {
	if !FromHandleErr(nil).IsOk() {
		t.Error("nil error should classify as Ok")
	}
	if out := FromHandleErr(&HandleError{Code: types.InvalidSignature}); !out.IsFailed() || out.Code() != types.InvalidSignature {
		t.Error("HandleError should classify as Failed with its code")
	}
	if out := FromHandleErr(errors.New("boom")); !out.IsUnknown() {
		t.Error("a plain error should classify as Unknown")
	}
}
