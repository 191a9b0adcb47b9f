package main

import (
	"testing"

	"go.uber.org/fx"
)

func TestApplicationGraph(t *testing.T) {
	if err := fx.ValidateApp(options()...); err != nil {
		t.Fatalf("invalid dependency graph: %v", err)
	}
}
