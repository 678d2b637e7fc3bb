package app

import (
	"testing"

	"go.uber.org/fx"
)

func TestModuleGraphIsValid(t *testing.T) {
	err := fx.ValidateApp(
		Module(Params{SessionName: "test"}),
		fx.NopLogger,
	)
	if err != nil {
		t.Fatalf("dependency graph invalid: %v", err)
	}
}
