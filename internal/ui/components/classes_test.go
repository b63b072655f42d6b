package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestButton_ExtraClassesOverride(t *testing.T) {
	classes := Button(VariantPrimary, "px-8")
	assert.Contains(t, classes, "px-8")
	assert.NotContains(t, classes, "px-4")
	assert.Contains(t, classes, "bg-zinc-900")
}

func TestButton_UnknownVariantFallsBack(t *testing.T) {
	assert.Contains(t, Button(Variant("nope")), "bg-zinc-900")
}

func TestInput_Merge(t *testing.T) {
	assert.Contains(t, Input("border-red-500"), "border-red-500")
	assert.NotContains(t, Input("border-red-500"), "border-zinc-300")
}
